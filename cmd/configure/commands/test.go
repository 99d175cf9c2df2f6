package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vavebg/ops-console/internal/blob"
	"github.com/vavebg/ops-console/internal/config"
	"github.com/vavebg/ops-console/internal/queue"
	"github.com/vavebg/ops-console/internal/services/notion"
	"github.com/vavebg/ops-console/internal/services/telegram"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test backing service connectivity",
		Long:  "Test connectivity to Redis, RabbitMQ, Notion and Telegram using the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			probes := map[string]func(*config.Config) error{
				"redis":    testRedis,
				"rabbitmq": testRabbitMQ,
				"notion":   testNotion,
				"telegram": testTelegram,
			}

			if target != "all" {
				probe, ok := probes[target]
				if !ok {
					return fmt.Errorf("unknown target %q (expected all, redis, rabbitmq, notion or telegram)", target)
				}
				if err := probe(cfg); err != nil {
					return err
				}
				fmt.Printf("✓ %s test passed\n", target)
				return nil
			}

			failed := 0
			for _, name := range []string{"redis", "rabbitmq", "notion", "telegram"} {
				if err := probes[name](cfg); err != nil {
					fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, err)
					failed++
					continue
				}
				fmt.Printf("✓ %s\n", name)
			}

			if failed > 0 {
				return fmt.Errorf("%d service test(s) failed", failed)
			}
			fmt.Println("\n✓ All service tests passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "all", "Service to test (all, redis, rabbitmq, notion, telegram)")

	return cmd
}

func testRedis(cfg *config.Config) error {
	store, err := blob.NewRedisStore(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close Redis connection: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return store.Ping(ctx)
}

func testRabbitMQ(cfg *config.Config) error {
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close RabbitMQ connection: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return jobQueue.HealthCheck(ctx)
}

func testNotion(cfg *config.Config) error {
	if cfg.NotionAPIKey == "" || cfg.NotionDatabaseID == "" {
		return fmt.Errorf("NOTION_API_KEY and NOTION_DATABASE_ID are not configured")
	}

	url := fmt.Sprintf("%s/v1/databases/%s", notion.DefaultAPIBaseURL, cfg.NotionDatabaseID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.NotionAPIKey)
	req.Header.Set("Notion-Version", notion.APIVersion)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach Notion: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("database lookup returned status: %d", resp.StatusCode)
	}
	return nil
}

func testTelegram(cfg *config.Config) error {
	if cfg.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/getMe", telegram.DefaultAPIBaseURL, cfg.TelegramBotToken)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach Telegram: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("getMe returned status: %d", resp.StatusCode)
	}
	return nil
}
