// This is an example bot that demonstrates how to use go-tark-discord.
// It serves the interaction webhook endpoint, polls the gateway for direct
// messages, and answers "/tark status" and "/tark ping" commands.
//
// Usage:
//
//	export DISCORD_APPLICATION_ID="your-application-id"
//	export DISCORD_PUBLIC_KEY="your-hex-public-key"
//	export DISCORD_BOT_TOKEN="your-bot-token"
//	go run .
//
// Set REDIS_ADDR to persist interaction tokens across restarts; otherwise an
// in-memory store is used.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/redis/go-redis/v9"

	discord "github.com/tark-chat/go-tark-discord"
)

func main() {
	// Load a local .env file when present; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	// Credentials left empty here resolve from storage and then from the
	// DISCORD_* environment variables.
	config := discord.NewConfig()
	config.WebhookAddr = ":8080"

	var options []discord.ChannelOption
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		options = append(options, discord.WithStore(discord.NewRedisStore(client, "tark:")))
	}

	channel, err := discord.NewChannel(config, options...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create channel: %s\n", err)
		os.Exit(1)
	}

	adapter, err := discord.NewAdapter(config, discord.WithChannel(channel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create adapter: %s\n", err)
		os.Exit(1)
	}

	// Create a Bot with the adapter and an in-memory user context storage
	// for conversational state management.
	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	bot := sarah.NewBot(adapter, sarah.BotWithStorage(storage))

	// Register the bot with go-sarah.
	sarah.RegisterBot(bot)

	registerStatusCommand(channel)
	registerPingCommand()

	// Set up a context that cancels on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start go-sarah's lifecycle management.
	err = sarah.Run(ctx, sarah.NewConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to run: %s\n", err)
		os.Exit(1)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")

	// Block until shutdown signal.
	<-ctx.Done()

	logger.Infof("Shutting down...")
}

var statusPattern = regexp.MustCompile(`^/tark status`)

func registerStatusCommand(channel *discord.Channel) {
	props := sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("status").
		MatchPattern(statusPattern).
		Func(func(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			stats := channel.Stats()
			msg := fmt.Sprintf("gateway connected: %t, sent: %d, received: %d",
				stats.GatewayConnected, stats.Sent, stats.Received)
			return discord.NewResponse(input, msg)
		}).
		Instruction("Input /tark status to display channel statistics.").
		MustBuild()

	sarah.RegisterCommandProps(props)
}

var pingPattern = regexp.MustCompile(`^/tark ping`)

func registerPingCommand() {
	props := sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("ping").
		MatchPattern(pingPattern).
		Func(func(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
			return discord.NewResponse(input, "pong")
		}).
		Instruction("Input /tark ping to check the bot is alive.").
		MustBuild()

	sarah.RegisterCommandProps(props)
}
