//go:build integration

package secrets

import (
	"runtime"
	"testing"

	"github.com/adrg/xdg"
)

func TestFileBackendStore_Integration(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("file backend fallback is exercised on linux only")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DBUS_SESSION_BUS_ADDRESS", "")
	t.Setenv(envKeyringBackend, "file")
	t.Setenv(envKeyringPassword, "integration")
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	store, err := OpenDefault()
	if err != nil {
		t.Fatalf("OpenDefault() error = %v", err)
	}
	if err := store.SetToken("ci", Token{APIToken: "secret_ci"}); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	tok, err := store.GetToken("ci")
	if err != nil || tok.APIToken != "secret_ci" {
		t.Errorf("GetToken() = %+v, %v", tok, err)
	}
	if err := store.DeleteToken("ci"); err != nil {
		t.Errorf("DeleteToken() error = %v", err)
	}
}

func TestEnsureKeychainAccess_Integration(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("keychain unlock is macOS only")
	}
	if err := EnsureKeychainAccess(); err != nil {
		t.Logf("keychain may be locked: %v", err)
	}
}
