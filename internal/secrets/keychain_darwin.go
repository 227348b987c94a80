//go:build darwin

package secrets

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

func loginKeychainPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, "Library", "Keychains", "login.keychain-db")
}

// IsKeychainLockedError reports whether errStr is the locked keychain error.
func IsKeychainLockedError(errStr string) bool {
	return strings.Contains(errStr, "errSecInteractionNotAllowed")
}

// CheckKeychainLocked reports whether the login keychain is locked.
func CheckKeychainLocked() bool {
	cmd := exec.Command("security", "show-keychain-info", loginKeychainPath())
	return cmd.Run() != nil
}

// UnlockKeychain prompts for the login keychain password.
func UnlockKeychain() error {
	cmd := exec.Command("security", "unlock-keychain", loginKeychainPath())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// EnsureKeychainAccess unlocks the login keychain if it is locked.
func EnsureKeychainAccess() error {
	if !CheckKeychainLocked() {
		return nil
	}
	return UnlockKeychain()
}
