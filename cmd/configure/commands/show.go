package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vavebg/ops-console/internal/config"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Show the effective configuration after applying file and environment overrides, with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Println("Effective configuration:")
			fmt.Printf("  Server port:        %s\n", cfg.ServerPort)
			fmt.Printf("  Frontend URL:       %s\n", cfg.FrontendURL)
			fmt.Printf("  Unlock window:      %s\n", cfg.UnlockWindow)
			fmt.Printf("  Batch cooldown:     %s\n", cfg.BatchCooldown)
			fmt.Printf("  Announce delay:     %s\n", cfg.AnnounceDelay)
			fmt.Printf("  Site base URL:      %s\n", cfg.SiteBaseURL)
			fmt.Printf("  Cloudinary cloud:   %s\n", cfg.CloudinaryCloudName)
			fmt.Printf("  Cloudinary preset:  %s\n", cfg.CloudinaryUploadPreset)
			fmt.Printf("  AI model:           %s\n", cfg.AIModel)
			fmt.Printf("  AI base URL:        %s\n", cfg.AIBaseURL)
			fmt.Printf("  Notion database:    %s\n", cfg.NotionDatabaseID)
			fmt.Printf("  Telegram channel:   %s\n", cfg.TelegramChannelID)
			fmt.Printf("  Redis URL:          %s\n", cfg.RedisURL)
			fmt.Printf("  RabbitMQ prefetch:  %d\n", cfg.RabbitMQPrefetch)
			fmt.Printf("  HSTS enabled:       %t\n", cfg.EnableHSTS)
			fmt.Printf("  OTEL enabled:       %t\n", cfg.OTELEnabled)
			if cfg.OTELEnabled {
				fmt.Printf("  OTEL endpoint:      %s\n", cfg.OTELEndpoint)
			}

			fmt.Println("\nSecrets:")
			fmt.Printf("  Access code:        %s\n", redacted(cfg.AccessCode))
			fmt.Printf("  Gate secret:        %s\n", redacted(cfg.GateSecret))
			fmt.Printf("  AI API key:         %s\n", redacted(cfg.AIAPIKey))
			fmt.Printf("  Notion API key:     %s\n", redacted(cfg.NotionAPIKey))
			fmt.Printf("  Telegram bot token: %s\n", redacted(cfg.TelegramBotToken))

			return nil
		},
	}

	return cmd
}

func redacted(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}
