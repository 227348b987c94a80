package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/config"
	"github.com/salmonumbrella/notion-cli/internal/resolve"
	"github.com/salmonumbrella/notion-cli/internal/site"
)

// loadConfigFromFlag loads config from --config if provided, otherwise from default path.
func loadConfigFromFlag() (*config.Config, error) {
	if strings.TrimSpace(configFile) != "" {
		return config.Load(configFile)
	}
	return config.ReadConfig()
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	if cmd.Flags().Changed(name) {
		return true
	}
	return cmd.InheritedFlags().Changed(name)
}

// resolveCredentials resolves the token and database ID with precedence:
// flags > env > keyring > config.
func resolveCredentials(cmd *cobra.Command, cfg *config.Config) (string, string) {
	token := ""
	dbID := ""
	if flagChanged(cmd, "token") {
		token = strings.TrimSpace(apiToken)
	}
	if flagChanged(cmd, "database") {
		dbID = strings.TrimSpace(databaseID)
	}

	if token == "" {
		token = strings.TrimSpace(envGet(config.EnvToken))
	}
	if dbID == "" {
		dbID = strings.TrimSpace(envGet(config.EnvDatabaseID))
	}

	if token == "" || dbID == "" {
		if store, err := openSecretsStore(); err == nil {
			if tok, err := store.GetToken(currentProfile(store)); err == nil {
				if token == "" {
					token = tok.APIToken
				}
				if dbID == "" {
					dbID = tok.DatabaseID
				}
			}
		}
	}

	if cfg != nil {
		if token == "" {
			token = strings.TrimSpace(cfg.Token)
		}
		if dbID == "" {
			dbID = strings.TrimSpace(cfg.DatabaseID)
		}
	}

	return token, dbID
}

// clientOptionsFromConfig builds API client options from config.
func clientOptionsFromConfig(cfg *config.Config) []api.ClientOption {
	if cfg == nil {
		return nil
	}
	var opts []api.ClientOption
	if v := strings.TrimSpace(cfg.BaseURL); v != "" {
		opts = append(opts, api.WithBaseURL(v))
	}
	if v := strings.TrimSpace(cfg.NotionVersion); v != "" {
		opts = append(opts, api.WithNotionVersion(v))
	}
	return opts
}

// fetchConcurrency is --concurrency, then config, then the resolver default.
func fetchConcurrency() int {
	if concurrency > 0 {
		return concurrency
	}
	if appConfig != nil && appConfig.Concurrency > 0 {
		return appConfig.Concurrency
	}
	return resolve.DefaultConcurrency
}

func newResolver() *resolve.Resolver {
	return resolve.New(client,
		resolve.WithConcurrency(fetchConcurrency()),
		resolve.WithLogger(logger),
		resolve.WithRecorder(recorder),
	)
}

func newAssembler(opts ...site.Option) *site.Assembler {
	base := []site.Option{
		site.WithResolver(newResolver()),
		site.WithLogger(logger),
		site.WithRecorder(recorder),
	}
	return site.New(client, append(base, opts...)...)
}

// requireDatabaseID picks the positional argument over the resolved default.
func requireDatabaseID(args []string) (string, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	if databaseID != "" {
		return databaseID, nil
	}
	return "", api.ValidationError{Message: "database ID required: pass it as an argument, use --database, or set " + config.EnvDatabaseID}
}

func formatConfigLoadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load config: %w", err)
}
