// Example host application: wires every configured platform into one
// orchestrator, registers a handful of commands and answers them with replies,
// follow-up questions and a reply menu.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"botmux/adapters"
	"botmux/adapters/discord"
	"botmux/adapters/slack"
	"botmux/adapters/telegram"
	"botmux/config"
	"botmux/interaction"
	"botmux/models"
	"botmux/orchestrator"
	"botmux/registry"
	"botmux/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reg := registry.NewCommandRegistry()

	var platformAdapters []adapters.Adapter
	if cfg.TelegramConfig.IsConfigured() {
		a, err := telegram.NewAdapter(cfg.TelegramConfig, reg)
		if err != nil {
			return fmt.Errorf("failed to create telegram adapter: %w", err)
		}
		platformAdapters = append(platformAdapters, a)
	}
	if cfg.DiscordConfig.IsConfigured() {
		a, err := discord.NewAdapter(cfg.DiscordConfig, reg)
		if err != nil {
			return fmt.Errorf("failed to create discord adapter: %w", err)
		}
		platformAdapters = append(platformAdapters, a)
	}
	if cfg.SlackConfig.IsConfigured() {
		a, err := slack.NewAdapter(cfg.SlackConfig, reg)
		if err != nil {
			return fmt.Errorf("failed to create slack adapter: %w", err)
		}
		platformAdapters = append(platformAdapters, a)
	}

	var userStore store.UserStore
	if cfg.StoreConfig.IsConfigured() {
		sqliteStore, err := store.NewSQLiteUserStore(cfg.StoreConfig.Path)
		if err != nil {
			return fmt.Errorf("failed to open user store: %w", err)
		}
		defer sqliteStore.Close()
		userStore = sqliteStore
	}

	bot := orchestrator.New(reg, userStore, platformAdapters...)
	registerCommands(bot)
	registerHandlers(bot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := bot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("🛑 Shutdown signal received, cleaning up...")

	bot.SendStatusUpdate("Offline")
	bot.Stop()
	return nil
}

func registerCommands(bot *orchestrator.Orchestrator) {
	ping, err := models.NewCommand("ping", "check whether the bot is alive", false)
	if err != nil {
		log.Fatalf("❌ Invalid command definition: %v", err)
	}
	greet, err := models.NewCommand("greet", "get a personal greeting", false,
		models.Field{Name: "name", Description: "your name", Required: true},
	)
	if err != nil {
		log.Fatalf("❌ Invalid command definition: %v", err)
	}
	poll, err := models.NewCommand("poll", "vote for your favourite season", false)
	if err != nil {
		log.Fatalf("❌ Invalid command definition: %v", err)
	}
	announce, err := models.NewCommand("announce", "post an announcement to the status channels", true,
		models.Field{Name: "message", Description: "the announcement text", Required: true},
	)
	if err != nil {
		log.Fatalf("❌ Invalid command definition: %v", err)
	}

	for _, cmd := range []*models.Command{ping, greet, poll, announce} {
		if err := bot.RegisterCommand(cmd); err != nil {
			log.Printf("⚠️ Failed to register command %s: %v", cmd.Name(), err)
		}
	}
}

func registerHandlers(bot *orchestrator.Orchestrator) {
	bot.RegisterReadyHandler(func(a adapters.Adapter) {
		bot.SendStatusUpdate("Online and listening")
	})

	bot.RegisterUserUpdateHandler(func(user *models.UnifiedUser) {
		bot.LogAll(fmt.Sprintf("User %s updated their info", user.DisplayName()))
	})

	bot.RegisterTextHandler(func(ctx context.Context, ia *interaction.Interaction) {
		if err := ia.Reply(ctx, "Say /ping, /greet or /poll to get started"); err != nil {
			log.Printf("⚠️ Failed to reply: %v", err)
		}
		ia.End()
	})

	bot.RegisterCommandHandler(func(ctx context.Context, ia *interaction.Interaction) {
		switch ia.Command.Name() {
		case "ping":
			reply(ctx, ia, "pong")
			ia.End()

		case "greet":
			name := ia.Field("name")
			reply(ctx, ia, fmt.Sprintf("Hello, %s!", name))
			ia.End()

		case "poll":
			menu := interaction.NewMenu("season", []interaction.MenuOption{
				{Key: "spring", Label: "Spring"},
				{Key: "summer", Label: "Summer"},
				{Key: "autumn", Label: "Autumn"},
				{Key: "winter", Label: "Winter"},
			}, func(ctx context.Context, ia *interaction.Interaction, key string) {
				reply(ctx, ia, fmt.Sprintf("Noted, %s it is", key))
				ia.End()
			})
			if err := ia.ReplyWithOptions(ctx, menu, "Which season do you like best?"); err != nil {
				log.Printf("⚠️ Failed to reply: %v", err)
			}

		case "announce":
			message := ia.Field("message")
			bot.ReplaceStatusMessage(message)
			reply(ctx, ia, "Announcement posted")
			ia.End()

		default:
			reply(ctx, ia, "That command has no handler yet")
			ia.End()
		}
	})
}

func reply(ctx context.Context, ia *interaction.Interaction, text string) {
	if err := ia.Reply(ctx, text); err != nil {
		log.Printf("⚠️ Failed to reply: %v", err)
	}
}
