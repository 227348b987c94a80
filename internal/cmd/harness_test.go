package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/secrets"
)

// cliEnv is the fake world a command runs against.
type cliEnv struct {
	client     *fakeClient
	store      *fakeStore
	env        map[string]string
	stdin      string
	configPath string
	dotEnv     string

	// tokens passed to the client factory, in order
	tokens []string
}

func newCLIEnv(t *testing.T, client *fakeClient) *cliEnv {
	t.Helper()
	if client == nil {
		client = &fakeClient{}
	}
	dir := t.TempDir()
	return &cliEnv{
		client:     client,
		store:      newFakeStore(),
		env:        map[string]string{},
		configPath: filepath.Join(dir, "config.yaml"),
		dotEnv:     filepath.Join(dir, ".env"),
	}
}

// run executes the CLI with args and returns stdout and stderr.
func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runWith(t, func(key string) string { return e.env[key] }, args...)
}

func (e *cliEnv) runWith(t *testing.T, getenv func(string) string, args ...string) (string, string, error) {
	t.Helper()
	restore := snapshotCLIState()
	defer restore()

	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errBuf)
	rootCmd.SetIn(strings.NewReader(e.stdin))

	envGet = getenv
	dotEnvPath = e.dotEnv
	openSecretsStore = func() (secrets.Store, error) { return e.store, nil }
	ensureKeychainAccess = func() error { return nil }
	newClientFromCredsFunc = func(token string, opts ...api.ClientOption) (api.NotionAPI, error) {
		e.tokens = append(e.tokens, token)
		if token == "" {
			return api.NewClientFromCredentials(token)
		}
		return e.client, nil
	}

	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := Execute(context.Background())
	return out.String(), errBuf.String(), err
}

func (e *cliEnv) lastToken() string {
	if len(e.tokens) == 0 {
		return ""
	}
	return e.tokens[len(e.tokens)-1]
}

func snapshotCLIState() func() {
	prevOutputType := outputType
	prevClient := client
	prevConfig := appConfig
	prevLogger := logger
	prevRecorder := recorder
	prevEnvGet := envGet
	prevDotEnv := dotEnvPath
	prevStore := openSecretsStore
	prevUnlock := ensureKeychainAccess
	prevNewClient := newClientFromCredsFunc

	prevOut := rootCmd.OutOrStdout()
	prevErr := rootCmd.ErrOrStderr()
	prevIn := rootCmd.InOrStdin()

	return func() {
		outputType = prevOutputType
		client = prevClient
		appConfig = prevConfig
		logger = prevLogger
		recorder = prevRecorder
		envGet = prevEnvGet
		dotEnvPath = prevDotEnv
		openSecretsStore = prevStore
		ensureKeychainAccess = prevUnlock
		newClientFromCredsFunc = prevNewClient

		rootCmd.SetOut(prevOut)
		rootCmd.SetErr(prevErr)
		rootCmd.SetIn(prevIn)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag of c and its subcommands to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	c.SetContext(context.Background())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
