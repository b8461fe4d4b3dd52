// Package auth checks caregiver credentials and tracks login sessions.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Users maps usernames to passwords.
type Users map[string]string

// usersFile is the YAML layout of BABYLOG_USERS_FILE.
type usersFile struct {
	Users map[string]string `yaml:"users"`
}

// LoadUsers merges "name:password" pairs with an optional YAML file.
// Pairs win over file entries with the same name.
func LoadUsers(pairs []string, path string) (Users, error) {
	users := Users{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read users file: %w", err)
		}
		var f usersFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse users file: %w", err)
		}
		for name, pw := range f.Users {
			if err := users.add(name, pw); err != nil {
				return nil, fmt.Errorf("users file: %w", err)
			}
		}
	}
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, pw, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("user %q: expected name:password", pair)
		}
		if err := users.add(name, pw); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (u Users) add(name, pw string) error {
	name = strings.TrimSpace(name)
	if name == "" || pw == "" {
		return fmt.Errorf("user %q: name and password are required", name)
	}
	u[name] = pw
	return nil
}

// Verify checks a username and password.
func (u Users) Verify(name, password string) error {
	want, ok := u[name]
	if !ok {
		// Compare anyway so unknown names take as long as wrong passwords.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(want)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
