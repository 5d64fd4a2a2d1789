package discord

import "encoding/json"

// InboundMessage is the canonical representation of one inbound Discord
// message or slash command, produced by the normalizer and consumed by the
// host application. ConversationID is the channel ID for direct messages, or
// "{channel_id}:{user_id}" when a guild context was observed.
type InboundMessage struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Text           string `json:"text"`
	MetadataJSON   string `json:"metadata_json"`
}

// Metadata is the structured form of InboundMessage.MetadataJSON. The same
// shape is accepted back on SendRequest.MetadataJSON to carry a channel
// override or the ephemeral flag.
type Metadata struct {
	Discord DiscordMetadata `json:"discord"`
	Command *CommandOption  `json:"tark_command,omitempty"`
}

// DiscordMetadata carries the Discord-side routing details of one message.
type DiscordMetadata struct {
	UserID           string   `json:"user_id"`
	ChannelID        string   `json:"channel_id"`
	GuildID          string   `json:"guild_id,omitempty"`
	Roles            []string `json:"roles"`
	InteractionToken string   `json:"interaction_token"`
	Ephemeral        bool     `json:"ephemeral"`
}

// CommandOption is a slash-command option carried to the host as a structured
// side channel when it is neither a prompt nor a command value.
type CommandOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (m Metadata) encode() string {
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// sendMetadata is the subset of Metadata the send router consults.
type sendMetadata struct {
	Discord struct {
		ChannelID string `json:"channel_id"`
		Ephemeral bool   `json:"ephemeral"`
	} `json:"discord"`
}

// parseSendMetadata extracts the channel override and ephemeral flag from a
// send request's metadata. Malformed or empty metadata yields the defaults.
func parseSendMetadata(metadataJSON string) (channelID string, ephemeral bool) {
	if metadataJSON == "" {
		return "", false
	}
	var meta sendMetadata
	if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
		return "", false
	}
	return meta.Discord.ChannelID, meta.Discord.Ephemeral
}
