package discord

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMetadata_Encode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		metadata := Metadata{
			Discord: DiscordMetadata{
				UserID:           "u1",
				ChannelID:        "c1",
				GuildID:          "g1",
				Roles:            []string{"r1"},
				InteractionToken: "itoken",
				Ephemeral:        true,
			},
			Command: &CommandOption{Name: "model", Value: "small"},
		}

		var decoded Metadata
		if err := json.Unmarshal([]byte(metadata.encode()), &decoded); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		d := decoded.Discord
		if d.UserID != "u1" || d.ChannelID != "c1" || d.GuildID != "g1" ||
			d.InteractionToken != "itoken" || !d.Ephemeral {
			t.Errorf("Unexpected metadata %+v", d)
		}
		if len(d.Roles) != 1 || d.Roles[0] != "r1" {
			t.Errorf("Unexpected roles %v", d.Roles)
		}
		if decoded.Command == nil || decoded.Command.Name != "model" {
			t.Errorf("Unexpected command %+v", decoded.Command)
		}
	})

	t.Run("empty optional fields are omitted", func(t *testing.T) {
		metadata := Metadata{Discord: DiscordMetadata{UserID: "u1", ChannelID: "c1", Roles: []string{}}}

		encoded := metadata.encode()
		if strings.Contains(encoded, "guild_id") {
			t.Errorf("Expected no guild_id field, got %s", encoded)
		}
		if strings.Contains(encoded, "tark_command") {
			t.Errorf("Expected no tark_command field, got %s", encoded)
		}
	})
}

func TestParseSendMetadata(t *testing.T) {
	tests := []struct {
		name              string
		metadata          string
		expectedChannel   string
		expectedEphemeral bool
	}{
		{
			name:              "channel override and ephemeral",
			metadata:          `{"discord":{"channel_id":"c9","ephemeral":true}}`,
			expectedChannel:   "c9",
			expectedEphemeral: true,
		},
		{
			name:     "empty metadata",
			metadata: "",
		},
		{
			name:     "malformed metadata",
			metadata: "not json",
		},
		{
			name:     "unrelated fields are ignored",
			metadata: `{"other":{"channel_id":"c9"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channelID, ephemeral := parseSendMetadata(tt.metadata)
			if channelID != tt.expectedChannel {
				t.Errorf("Expected channel %q, got %q", tt.expectedChannel, channelID)
			}
			if ephemeral != tt.expectedEphemeral {
				t.Errorf("Expected ephemeral=%t, got %t", tt.expectedEphemeral, ephemeral)
			}
		})
	}
}
