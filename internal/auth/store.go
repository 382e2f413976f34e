// Package auth owns the OAuth2 credential lifecycle: persistence,
// reuse, refresh, and interactive authorization.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// tokenRecord is the on-disk form of a credential: the oauth2 token
// fields plus the scope set it was issued for.
type tokenRecord struct {
	*oauth2.Token
	Scopes []string `json:"scopes"`
}

// Store reads and writes the persisted token record. An empty path
// disables persistence entirely: Load always reports absent and Save
// is a no-op.
type Store struct {
	path   string
	scopes []string
}

// NewStore creates a Store bound to path. scopes is the set the
// current process requires; records issued for a narrower set are
// treated as absent on load.
func NewStore(path string, scopes []string) *Store {
	if path == "" {
		log.Println("Token persistence disabled, credential will not survive restarts")
	}
	return &Store{path: path, scopes: scopes}
}

// Load returns the persisted credential, or nil when no usable record
// exists. Missing, unreadable, or malformed files are not errors:
// absence is an expected state that simply forces authorization later.
func (s *Store) Load() *oauth2.Token {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Token file %s doesn't exist, will be created after authorization", s.path)
		} else {
			log.Printf("Token file %s unreadable, treating as absent: %v", s.path, err)
		}
		return nil
	}

	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("Token file %s malformed, treating as absent: %v", s.path, err)
		return nil
	}
	if rec.Token == nil || rec.AccessToken == "" && rec.RefreshToken == "" {
		log.Printf("Token file %s carries no token, treating as absent", s.path)
		return nil
	}

	if !scopesCover(rec.Scopes, s.scopes) {
		log.Printf("Token file %s issued for scopes %v, need %v, treating as absent", s.path, rec.Scopes, s.scopes)
		return nil
	}

	return rec.Token
}

// Save persists the credential together with the required scope set.
// The record holds a refresh token, so the file is written 0600 via a
// temp file in the same directory and renamed into place.
func (s *Store) Save(tok *oauth2.Token) error {
	if s.path == "" || tok == nil {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("os.MkdirAll failed: %w", err)
	}

	data, err := json.Marshal(tokenRecord{Token: tok, Scopes: s.scopes})
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	f, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp failed: %w", err)
	}
	tmp := f.Name()

	if err := writeAndClose(f, data); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("os.Rename failed: %w", err)
	}

	return nil
}

func writeAndClose(f *os.File, data []byte) error {
	if err := f.Chmod(0600); err != nil {
		_ = f.Close()
		return fmt.Errorf("f.Chmod failed: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("f.Write failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close failed: %w", err)
	}
	return nil
}

// scopesCover reports whether have includes every scope in want.
func scopesCover(have, want []string) bool {
	granted := make(map[string]bool, len(have))
	for _, s := range have {
		granted[s] = true
	}
	for _, s := range want {
		if !granted[s] {
			return false
		}
	}
	return true
}
