package cmd

import (
	"os"

	"github.com/salmonumbrella/notion-cli/internal/api"
	"github.com/salmonumbrella/notion-cli/internal/secrets"
)

var (
	openSecretsStore       = secrets.OpenDefault
	ensureKeychainAccess   = secrets.EnsureKeychainAccess
	newClientFromCredsFunc = api.NewClientFromCredentials
	envGet                 = os.Getenv
	dotEnvPath             = ".env"
)
