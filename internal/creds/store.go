// Package creds owns provider credentials: the per-account token store,
// and the coordinator that deduplicates concurrent refresh attempts.
package creds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Credential is one account's provider token set.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// Expired reports whether the access token needs a refresh. A small skew
// keeps tokens from expiring mid-request.
func (c Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(30 * time.Second).Before(c.Expiry)
}

// Store reads and writes per-account credentials.
type Store interface {
	Read(accountID string) (Credential, error)
	Write(accountID string, cred Credential) error
}

// FileStore keeps each account's credential in a token-<account>.json file
// under its directory.
type FileStore struct {
	Dir string
}

// Read loads the account's token file.
func (s *FileStore) Read(accountID string) (Credential, error) {
	f, err := os.Open(s.path(accountID))
	if err != nil {
		return Credential{}, fmt.Errorf("could not load token for account %s: %w", accountID, err)
	}
	defer f.Close()

	var cred Credential
	if err := json.NewDecoder(f).Decode(&cred); err != nil {
		return Credential{}, fmt.Errorf("could not decode token for account %s: %w", accountID, err)
	}
	return cred, nil
}

// Write saves the account's token file with owner-only permissions.
func (s *FileStore) Write(accountID string, cred Credential) error {
	f, err := os.OpenFile(s.path(accountID), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(cred)
}

// Accounts lists the account IDs that have a stored token.
func (s *FileStore) Accounts() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "token-") && strings.HasSuffix(name, ".json") {
			accounts = append(accounts, strings.TrimSuffix(strings.TrimPrefix(name, "token-"), ".json"))
		}
	}
	return accounts, nil
}

func (s *FileStore) path(accountID string) string {
	return filepath.Join(s.Dir, "token-"+accountID+".json")
}
