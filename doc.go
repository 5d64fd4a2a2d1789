// Package discord integrates a tark host application with Discord's
// interaction webhook and gateway protocols.
//
// The package accepts inbound interaction webhooks, verifies their ed25519
// signatures, and normalizes interaction and gateway payloads into a single
// InboundMessage representation for the host to consume. Outbound replies are
// routed through the interaction webhook, the bot token, or a cached user
// OAuth token, in that order.
//
// The gateway connection is a caller-driven state machine: the host advances
// it by calling Channel.Poll on its own cadence, and the session identifies,
// heartbeats, and resets itself as gateway opcodes arrive. A sarah.Adapter
// implementation is provided for hosts built on go-sarah.
package discord
