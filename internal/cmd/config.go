package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/notion-cli/internal/config"
	"github.com/salmonumbrella/notion-cli/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration stored in $XDG_CONFIG_HOME/notion/config.yaml.

Supported keys: base_url, token, database_id, notion_version,
keyring_backend, output_format and concurrency.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfigFromFlag()
		if err != nil {
			return formatConfigLoadError(err)
		}
		view := configOutput(cfg)
		return printData(ctx, view, func() error {
			out := stdoutFromContext(ctx)
			fmt.Fprintln(out, "Config:")
			for _, key := range supportedConfigKeys() {
				fmt.Fprintf(out, "  %s: %v\n", key, view[key])
			}
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Unset a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List supported configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		keys := supportedConfigKeys()
		return printData(ctx, keys, func() error {
			out := stdoutFromContext(ctx)
			fmt.Fprintln(out, "Supported keys:")
			for _, key := range keys {
				fmt.Fprintf(out, "  %s\n", key)
			}
			return nil
		})
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path, err := configPath()
		if err != nil {
			return err
		}
		return printData(ctx, map[string]string{"path": path}, func() error {
			fmt.Fprintln(stdoutFromContext(ctx), path)
			return nil
		})
	},
}

func configPath() (string, error) {
	if strings.TrimSpace(configFile) != "" {
		return configFile, nil
	}
	return config.DefaultConfigPath()
}

func supportedConfigKeys() []string {
	keys := []string{
		"base_url",
		"token",
		"database_id",
		"notion_version",
		"keyring_backend",
		"output_format",
		"concurrency",
	}
	sort.Strings(keys)
	return keys
}

func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "base_url":
		cfg.BaseURL = value
	case "token":
		cfg.Token = value
	case "database_id":
		cfg.DatabaseID = value
	case "notion_version":
		cfg.NotionVersion = value
	case "keyring_backend":
		switch value {
		case "auto", "keychain", "file":
		default:
			return fmt.Errorf("invalid keyring_backend %q (expected auto|keychain|file)", value)
		}
		cfg.KeyringBackend = value
	case "output_format":
		if _, err := output.ParseFormat(value); err != nil {
			return err
		}
		cfg.OutputFormat = value
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid concurrency %q (expected a non-negative integer)", value)
		}
		cfg.Concurrency = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func clearConfigValue(cfg *config.Config, key string) error {
	switch key {
	case "base_url":
		cfg.BaseURL = ""
	case "token":
		cfg.Token = ""
	case "database_id":
		cfg.DatabaseID = ""
	case "notion_version":
		cfg.NotionVersion = ""
	case "keyring_backend":
		cfg.KeyringBackend = ""
	case "output_format":
		cfg.OutputFormat = ""
	case "concurrency":
		cfg.Concurrency = 0
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(args[1])

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}
	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if key == "token" {
		value = maskToken(value)
	}
	return printData(ctx, map[string]string{"status": "updated", "key": key, "value": value}, func() error {
		fmt.Fprintf(stdoutFromContext(ctx), "Updated %s\n", key)
		return nil
	})
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := strings.ToLower(strings.TrimSpace(args[0]))

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}
	if err := clearConfigValue(cfg, key); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	return printData(ctx, map[string]string{"status": "unset", "key": key}, func() error {
		fmt.Fprintf(stdoutFromContext(ctx), "Unset %s\n", key)
		return nil
	})
}

func configOutput(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"base_url":        cfg.BaseURL,
		"token":           maskToken(cfg.Token),
		"token_set":       cfg.Token != "",
		"database_id":     cfg.DatabaseID,
		"notion_version":  cfg.NotionVersion,
		"keyring_backend": cfg.KeyringBackend,
		"output_format":   cfg.OutputFormat,
		"concurrency":     cfg.Concurrency,
	}
}
