package discord

import (
	"context"
	"encoding/json"

	"github.com/oklahomer/go-kasumi/logger"
)

// interactionTokenRecord is the persisted form of one interaction token.
type interactionTokenRecord struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"created_at"`
}

// storeInteractionToken persists the single-use webhook-reply token issued
// with an interaction, keyed by conversation.
func (c *Channel) storeInteractionToken(ctx context.Context, conversationID, token string) {
	record := interactionTokenRecord{
		Token:     token,
		CreatedAt: c.clock().Unix(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, storageKeyInteractionToken+conversationID, string(payload)); err != nil {
		logger.Errorf("Failed to store interaction token for %s: %+v", conversationID, err)
	}
}

// loadInteractionToken returns the conversation's interaction token if one
// exists and is younger than the configured TTL. Expiry is checked lazily on
// read: a stale record is deleted here rather than by a background sweep.
func (c *Channel) loadInteractionToken(ctx context.Context, conversationID string) (string, bool) {
	key := storageKeyInteractionToken + conversationID
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return "", false
	}

	var record interactionTokenRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return "", false
	}

	age := c.clock().Unix() - record.CreatedAt
	if age > int64(c.config.InteractionTokenTTL.Seconds()) {
		if err := c.store.Delete(ctx, key); err != nil {
			logger.Warnf("Failed to evict expired interaction token for %s: %+v", conversationID, err)
		}
		return "", false
	}
	return record.Token, true
}
