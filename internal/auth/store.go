package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// FilePermission is the permission for credential files
	FilePermission = 0600
	// DirPermission is the permission for the credential directory
	DirPermission = 0700
)

var (
	// ErrNoClientID means neither the client-id file nor the configuration names one.
	ErrNoClientID = errors.New("no spotify client id configured")
	// ErrNoToken means the token cache is missing or holds no usable token.
	ErrNoToken = errors.New("no cached spotify token")
)

// TokenData is the on-disk shape of the token cache.
type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// ClientIDData is the on-disk shape of the client-id file.
type ClientIDData struct {
	ClientID string `json:"clientID"`
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if tokenData.Token == nil || (tokenData.Token.AccessToken == "" && tokenData.Token.RefreshToken == "") {
		return nil, ErrNoToken
	}

	return tokenData.Token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(TokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func loadClientID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoClientID
	}
	if err != nil {
		return "", fmt.Errorf("failed to read client id file: %w", err)
	}

	var clientData ClientIDData
	if err := json.Unmarshal(data, &clientData); err != nil {
		return "", fmt.Errorf("failed to parse client id file: %w", err)
	}

	id := strings.TrimSpace(clientData.ClientID)
	if id == "" {
		return "", ErrNoClientID
	}
	return id, nil
}

func saveClientID(path, id string) error {
	data, err := json.MarshalIndent(ClientIDData{ClientID: id}, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPermission); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, FilePermission)
}

// removeFile deletes path; a file that is already gone is not an error.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
