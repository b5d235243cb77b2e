package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xcellar/xcellar/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			redactConfig(cfg)
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Fail when the configuration cannot work at runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	}

	configCmd.AddCommand(showCmd, validateCmd)
	rootCmd.AddCommand(configCmd)
}

func redactConfig(cfg *config.Config) {
	cfg.Auth.SigningKey = mask(cfg.Auth.SigningKey)
	cfg.Cache.Password = mask(cfg.Cache.Password)
	cfg.Paystack.SecretKey = mask(cfg.Paystack.SecretKey)
	cfg.Twilio.AuthToken = mask(cfg.Twilio.AuthToken)
	cfg.N8N.WebhookToken = mask(cfg.N8N.WebhookToken)
	cfg.Security.ServerAPIToken = mask(cfg.Security.ServerAPIToken)
	cfg.Security.AutomationToken = mask(cfg.Security.AutomationToken)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
