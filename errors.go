package discord

import "errors"

// ErrNilConfig indicates that a nil Config was passed to a constructor.
var ErrNilConfig = errors.New("config must not be nil")

// ErrMissingApplicationID indicates that no application ID could be resolved
// from the cache, persisted storage, or the environment.
var ErrMissingApplicationID = errors.New("missing application id")

// ErrEphemeralRequiresToken indicates that an ephemeral reply was requested
// but no unexpired interaction token exists for the conversation. Ephemeral
// replies are only deliverable through the interaction webhook.
var ErrEphemeralRequiresToken = errors.New("ephemeral response requires interaction token")

// ErrOAuthTokenExpired indicates that the cached user OAuth token has passed
// its expiry and cannot be used for sending.
var ErrOAuthTokenExpired = errors.New("oauth token expired")

// ErrNoSendToken indicates that no interaction token, bot token, or user
// OAuth token is available to deliver a message.
var ErrNoSendToken = errors.New("no valid send token")

// ErrAuthPayload indicates that an auth init payload carried neither a config
// block nor a token object.
var ErrAuthPayload = errors.New("auth payload carries no config or tokens")
