package discord

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

// interactionPayload is the subset of a Discord interaction object the
// channel consumes. The same shape arrives over the webhook and as the `d`
// field of a gateway INTERACTION_CREATE dispatch.
type interactionPayload struct {
	Type          discordgo.InteractionType `json:"type"`
	Token         string                    `json:"token"`
	ApplicationID string                    `json:"application_id"`
	ChannelID     string                    `json:"channel_id"`
	GuildID       string                    `json:"guild_id"`
	Member        *interactionMember        `json:"member"`
	User          *interactionUser          `json:"user"`
	Data          *interactionData          `json:"data"`
}

type interactionMember struct {
	User  *interactionUser `json:"user"`
	Roles []string         `json:"roles"`
}

type interactionUser struct {
	ID string `json:"id"`
}

type interactionData struct {
	Name    string              `json:"name"`
	Options []interactionOption `json:"options"`
}

// interactionOption keeps its value raw: Discord option values may be any
// JSON type, and non-string values are ignored rather than failing the parse.
type interactionOption struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (o interactionOption) stringValue() (string, bool) {
	var value string
	if err := json.Unmarshal(o.Value, &value); err != nil {
		return "", false
	}
	return value, true
}

// decodeInteraction decodes an interaction payload tolerantly. Discord's
// payloads vary by interaction type, so a field with an unexpected shape is
// dropped rather than failing the whole decode; only a body that is not a
// JSON object yields nil.
func decodeInteraction(data []byte) *interactionPayload {
	var raw struct {
		Type          json.RawMessage `json:"type"`
		Token         json.RawMessage `json:"token"`
		ApplicationID json.RawMessage `json:"application_id"`
		ChannelID     json.RawMessage `json:"channel_id"`
		GuildID       json.RawMessage `json:"guild_id"`
		Member        json.RawMessage `json:"member"`
		User          json.RawMessage `json:"user"`
		Data          json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	p := &interactionPayload{}
	_ = json.Unmarshal(raw.Type, &p.Type)
	_ = json.Unmarshal(raw.Token, &p.Token)
	_ = json.Unmarshal(raw.ApplicationID, &p.ApplicationID)
	_ = json.Unmarshal(raw.ChannelID, &p.ChannelID)
	_ = json.Unmarshal(raw.GuildID, &p.GuildID)
	if len(raw.Member) > 0 {
		var member interactionMember
		if err := json.Unmarshal(raw.Member, &member); err == nil {
			p.Member = &member
		}
	}
	if len(raw.User) > 0 {
		var user interactionUser
		if err := json.Unmarshal(raw.User, &user); err == nil {
			p.User = &user
		}
	}
	if len(raw.Data) > 0 {
		var d interactionData
		if err := json.Unmarshal(raw.Data, &d); err == nil {
			p.Data = &d
		}
	}
	return p
}

// messageCreatePayload is the subset of a gateway MESSAGE_CREATE dispatch the
// channel consumes. channel_type is attached by the host's gateway transport.
type messageCreatePayload struct {
	GuildID     string `json:"guild_id"`
	ChannelID   string `json:"channel_id"`
	ChannelType int    `json:"channel_type"`
	Content     string `json:"content"`
	Author      *struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
}

// user returns the acting user's ID and guild roles. Interactions invoked in
// a guild carry the user under member.user; direct invocations carry a bare
// user object. An absent user maps to "unknown".
func (p *interactionPayload) user() (string, []string) {
	if p.Member != nil && p.Member.User != nil && p.Member.User.ID != "" {
		return p.Member.User.ID, p.Member.Roles
	}
	if p.User != nil && p.User.ID != "" {
		return p.User.ID, nil
	}
	return "unknown", nil
}

// commandText maps a slash-command invocation to the message text the host's
// command parser sees:
//
//   - a `prompt` option is the entire text, the command name is discarded
//   - a `command` option becomes "/tark {value}"
//   - any other first string option rides along as a structured side channel
//   - a bare `tark` invocation defaults to "/tark status"
//   - any other bare command becomes "/tark {name}"
func (p *interactionPayload) commandText() (string, *CommandOption) {
	name := "tark"
	var command *CommandOption

	if p.Data != nil {
		if p.Data.Name != "" {
			name = p.Data.Name
		}
		for _, opt := range p.Data.Options {
			value, ok := opt.stringValue()
			if !ok || opt.Name == "" {
				continue
			}
			switch opt.Name {
			case "prompt":
				return value, nil
			case "command":
				return "/tark " + value, nil
			default:
				if command == nil {
					command = &CommandOption{Name: opt.Name, Value: value}
				}
			}
		}
	}

	if name == "tark" {
		return "/tark status", command
	}
	return "/tark " + name, command
}

// normalizeDispatch turns one gateway dispatch event into inbound messages.
// Event types other than MESSAGE_CREATE and INTERACTION_CREATE are ignored.
func (c *Channel) normalizeDispatch(ctx context.Context, eventType string, data json.RawMessage) []InboundMessage {
	switch eventType {
	case "MESSAGE_CREATE":
		return c.normalizeMessageCreate(data)
	case "INTERACTION_CREATE":
		return c.normalizeInteractionCreate(ctx, data)
	default:
		return nil
	}
}

// normalizeMessageCreate accepts direct messages only: no guild, DM channel
// type, human author, non-empty content. Everything else produces nothing.
func (c *Channel) normalizeMessageCreate(data json.RawMessage) []InboundMessage {
	var msg messageCreatePayload
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}

	if msg.GuildID != "" {
		return nil
	}
	if msg.ChannelType != int(discordgo.ChannelTypeDM) {
		return nil
	}
	if msg.Author == nil || msg.Author.Bot {
		return nil
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return nil
	}

	channelID := msg.ChannelID
	if channelID == "" {
		channelID = "unknown"
	}
	userID := msg.Author.ID
	if userID == "" {
		userID = "unknown"
	}

	metadata := Metadata{
		Discord: DiscordMetadata{
			UserID:    userID,
			ChannelID: channelID,
			Roles:     []string{},
		},
	}

	c.stats.recordReceived()
	return []InboundMessage{{
		ConversationID: channelID,
		UserID:         userID,
		Text:           content,
		MetadataJSON:   metadata.encode(),
	}}
}

// normalizeInteractionCreate handles a gateway-delivered interaction. Guild
// interactions produce nothing here: the gateway intents exclude guild
// message content, and DM-only operation refuses guild traffic at the
// webhook instead.
func (c *Channel) normalizeInteractionCreate(ctx context.Context, data json.RawMessage) []InboundMessage {
	interaction := decodeInteraction(data)
	if interaction == nil {
		return nil
	}
	if interaction.GuildID != "" {
		return nil
	}

	channelID := interaction.ChannelID
	if channelID == "" {
		channelID = "unknown"
	}

	if interaction.ApplicationID != "" {
		if err := c.store.Set(ctx, storageKeyApplicationID, interaction.ApplicationID); err != nil {
			logger.Warnf("Failed to persist application ID: %+v", err)
		}
	}

	userID, roles := interaction.user()
	text, command := interaction.commandText()

	conversationID := channelID
	if interaction.Token != "" {
		c.storeInteractionToken(ctx, conversationID, interaction.Token)
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	if roles == nil {
		roles = []string{}
	}
	metadata := Metadata{
		Discord: DiscordMetadata{
			UserID:           userID,
			ChannelID:        channelID,
			Roles:            roles,
			InteractionToken: interaction.Token,
		},
		Command: command,
	}

	c.stats.recordReceived()
	return []InboundMessage{{
		ConversationID: conversationID,
		UserID:         userID,
		Text:           text,
		MetadataJSON:   metadata.encode(),
	}}
}
