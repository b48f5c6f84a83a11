package config

import (
	"fmt"
	"log"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type TelegramConfig struct {
	BotToken        string   `env:"TELEGRAM_BOT_TOKEN"`
	LogChannelID    int64    `env:"TELEGRAM_LOG_CHANNEL"`
	StatusChannelID int64    `env:"TELEGRAM_STATUS_CHANNEL"`
	AdminAllowlist  []string `env:"TELEGRAM_ADMIN_ALLOWED"`
}

// IsConfigured returns true if all required Telegram configuration is present
func (c TelegramConfig) IsConfigured() bool {
	return c.BotToken != ""
	// Note: log/status channels and the admin allowlist are optional
}

type DiscordConfig struct {
	BotToken        string   `env:"DISCORD_BOT_TOKEN"`
	LogChannelID    string   `env:"DISCORD_LOG_CHANNEL"`
	StatusChannelID string   `env:"DISCORD_STATUS_CHANNEL"`
	AdminAllowlist  []string `env:"DISCORD_ADMIN_ALLOWED"`
}

// IsConfigured returns true if all required Discord configuration is present
func (c DiscordConfig) IsConfigured() bool {
	return c.BotToken != ""
}

type SlackConfig struct {
	BotToken        string   `env:"SLACK_BOT_TOKEN"`
	AppToken        string   `env:"SLACK_APP_TOKEN"`
	LogChannelID    string   `env:"SLACK_LOG_CHANNEL"`
	StatusChannelID string   `env:"SLACK_STATUS_CHANNEL"`
	AdminAllowlist  []string `env:"SLACK_ADMIN_ALLOWED"`
}

// IsConfigured returns true if all required Slack configuration is present.
// Socket mode needs both the bot token and an app-level token.
func (c SlackConfig) IsConfigured() bool {
	return c.BotToken != "" &&
		c.AppToken != ""
}

type StoreConfig struct {
	Path string `env:"USER_STORE_PATH"`
}

// IsConfigured returns true if user persistence is enabled
func (c StoreConfig) IsConfigured() bool {
	return c.Path != ""
}

type AppConfig struct {
	Environment     string `env:"ENVIRONMENT" envDefault:"dev"`
	UseStrictConfig bool   `env:"USE_STRICT_CONFIG" envDefault:"false"` // If true, error when any platform is not fully configured

	// Platform configurations (grouped)
	TelegramConfig TelegramConfig
	DiscordConfig  DiscordConfig
	SlackConfig    SlackConfig
	StoreConfig    StoreConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	config := &AppConfig{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Log which platforms are configured
	if config.TelegramConfig.IsConfigured() {
		log.Printf("✅ Telegram platform configured")
	} else {
		log.Printf("⚠️ Telegram platform not configured - Telegram features will be disabled")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("telegram platform is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.DiscordConfig.IsConfigured() {
		log.Printf("✅ Discord platform configured")
	} else {
		log.Printf("⚠️ Discord platform not configured - Discord features will be disabled")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("discord platform is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.SlackConfig.IsConfigured() {
		log.Printf("✅ Slack platform configured")
	} else {
		log.Printf("⚠️ Slack platform not configured - Slack features will be disabled")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("slack platform is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.StoreConfig.IsConfigured() {
		log.Printf("✅ User persistence configured at %s", config.StoreConfig.Path)
	} else {
		log.Printf("⚠️ User persistence not configured - known users reset on restart")
	}

	if !config.TelegramConfig.IsConfigured() &&
		!config.DiscordConfig.IsConfigured() &&
		!config.SlackConfig.IsConfigured() {
		return nil, fmt.Errorf("no platform is configured")
	}

	return config, nil
}
