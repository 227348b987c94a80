package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/config"
	"github.com/salmonumbrella/notion-cli/internal/secrets"
)

// defaultProfile is the profile name used for credentials
const defaultProfile = "default"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication credentials",
	Long: `Manage the Notion integration token.

Credentials are stored in your system keychain (macOS Keychain, Windows
Credential Manager, Secret Service, or an encrypted file).

Examples:
  notion auth login --token secret_xxx --database <database-id>
  notion auth login  # prompt for the token
  notion auth status --verify
  notion auth logout`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an integration token",
	Long: `Store an integration token and, optionally, a default database.

To obtain a token, create an internal integration at
https://www.notion.so/my-integrations and share your database with it.

When a database is given, the token is checked against it before it is
stored.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current authentication status",
	RunE:  runStatus,
}

var (
	loginToken    string
	loginDatabase string
	loginProfile  string
	verifyAuth    bool
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(authCmd)

	// Local --token/--database shadow the global flags on purpose: login
	// stores what it is given instead of resolving it.
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Integration token")
	loginCmd.Flags().StringVar(&loginDatabase, "database", "", "Default database ID")
	authCmd.PersistentFlags().StringVar(&loginProfile, "profile", "", "Credential profile (default: the default account)")

	statusCmd.Flags().BoolVar(&verifyAuth, "verify", false, "Verify the token against the stored database")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	token := strings.TrimSpace(loginToken)
	if token == "" {
		token = strings.TrimSpace(envGet(config.EnvToken))
	}
	if token == "" {
		if token, err = promptSecret(ctx, "Enter integration token: "); err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
	}
	if token == "" {
		return api.ValidationError{Message: "integration token is required"}
	}

	dbID := strings.TrimSpace(loginDatabase)
	if dbID == "" {
		dbID = strings.TrimSpace(envGet(config.EnvDatabaseID))
	}

	verified := false
	if dbID != "" {
		if err := verifyToken(ctx, token, dbID); err != nil {
			return err
		}
		verified = true
	}

	profile := loginProfile
	if profile == "" {
		profile = defaultProfile
	}
	tok := secrets.Token{
		Profile:    profile,
		APIToken:   token,
		DatabaseID: dbID,
		CreatedAt:  time.Now().UTC(),
	}
	if secrets.ResolveKeyringBackend().Value != "file" {
		if err := ensureKeychainAccess(); err != nil {
			return fmt.Errorf("failed to unlock keychain: %w", err)
		}
	}
	if err := store.SetToken(profile, tok); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	if err := store.SetDefaultAccount(profile); err != nil {
		return fmt.Errorf("failed to set default account: %w", err)
	}

	result := map[string]interface{}{
		"status":      "authenticated",
		"profile":     profile,
		"database_id": dbID,
		"verified":    verified,
	}
	return printData(ctx, result, func() error {
		out := stdoutFromContext(ctx)
		fmt.Fprintln(out, "Authenticated successfully!")
		fmt.Fprintf(out, "Profile: %s\n", profile)
		if dbID != "" {
			fmt.Fprintf(out, "Database: %s (verified)\n", dbID)
		} else {
			fmt.Fprintln(out, "Database: not configured (token not verified)")
		}
		return nil
	})
}

// verifyToken runs a one-row query to check the token can read the database.
func verifyToken(ctx context.Context, token, dbID string) error {
	opts := append(clientOptionsFromConfig(appConfig), api.WithLogger(logger))
	c, err := newClientFromCredsFunc(token, opts...)
	if err != nil {
		return err
	}
	if _, err := c.QueryDatabase(ctx, dbID, api.QueryOptions{PageSize: 1}); err != nil {
		var authErr api.AuthenticationError
		if errors.As(err, &authErr) {
			return fmt.Errorf("authentication failed: %w", err)
		}
		return fmt.Errorf("could not verify token against database %s: %w", dbID, err)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	profile := loginProfile
	if profile == "" {
		profile = currentProfile(store)
	}
	if err := store.DeleteToken(profile); err != nil && !errors.Is(err, secrets.ErrTokenNotFound) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	return printData(ctx, map[string]string{"status": "logged_out", "profile": profile}, func() error {
		fmt.Fprintf(stdoutFromContext(ctx), "Logged out of profile %s.\n", profile)
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openSecretsStore()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	profile := loginProfile
	if profile == "" {
		profile = currentProfile(store)
	}
	tok, err := store.GetToken(profile)
	if err != nil {
		if !errors.Is(err, secrets.ErrTokenNotFound) {
			return err
		}
		return printData(ctx, map[string]interface{}{"authenticated": false, "profile": profile}, func() error {
			out := stdoutFromContext(ctx)
			fmt.Fprintln(out, "Status: Not authenticated")
			fmt.Fprintln(out, "\nRun 'notion auth login' to authenticate.")
			return nil
		})
	}

	result := map[string]interface{}{
		"authenticated": true,
		"profile":       tok.Profile,
		"database_id":   tok.DatabaseID,
		"token_preview": maskToken(tok.APIToken),
	}
	if !tok.CreatedAt.IsZero() {
		result["authenticated_at"] = tok.CreatedAt.Format(time.RFC3339)
	}

	var verifyErr error
	if verifyAuth {
		if tok.DatabaseID == "" {
			verifyErr = errors.New("no database configured for this profile")
		} else {
			verifyErr = verifyToken(ctx, tok.APIToken, tok.DatabaseID)
		}
		result["verified"] = verifyErr == nil
		if verifyErr != nil {
			result["verify_error"] = verifyErr.Error()
		}
	}

	return printData(ctx, result, func() error {
		out := stdoutFromContext(ctx)
		fmt.Fprintln(out, "Status: Authenticated")
		fmt.Fprintf(out, "Profile: %s\n", tok.Profile)
		if !tok.CreatedAt.IsZero() {
			fmt.Fprintf(out, "Authenticated at: %s\n", tok.CreatedAt.Format(time.RFC3339))
		}
		if tok.DatabaseID != "" {
			fmt.Fprintf(out, "Database: %s\n", tok.DatabaseID)
		} else {
			fmt.Fprintln(out, "Database: Not configured")
		}
		fmt.Fprintf(out, "Token: %s\n", maskToken(tok.APIToken))
		if verifyAuth {
			if verifyErr != nil {
				fmt.Fprintf(out, "Verification: FAILED - %v\n", verifyErr)
			} else {
				fmt.Fprintln(out, "Verification: OK")
			}
		}
		return nil
	})
}

// currentProfile returns the stored default account, or defaultProfile.
func currentProfile(store secrets.Store) string {
	if p, err := store.GetDefaultAccount(); err == nil && p != "" {
		return p
	}
	return defaultProfile
}

// promptSecret prompts for a secret input (no echo)
func promptSecret(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(stderrFromContext(ctx), prompt)

	in := stdinFromContext(ctx)
	if file, ok := in.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		password, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(stderrFromContext(ctx))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(password)), nil
	}

	// Piped input
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
