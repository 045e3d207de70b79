package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	keyringService       = "gkg"
	keyringOpenAIItem    = "openai-api-key"
	keyringAnthropicItem = "anthropic-api-key"
	keyringGeminiItem    = "gemini-api-key"
)

// KeyringManager stores and retrieves LLM provider keys in the OS keychain
// (macOS Keychain, Windows Credential Manager, Linux Secret Service), so a
// key never needs to live in a plaintext config file.
type KeyringManager struct {
	logger *slog.Logger
}

func NewKeyringManager() *KeyringManager {
	return &KeyringManager{logger: slog.Default().With("component", "keyring")}
}

func (km *KeyringManager) get(item string) (string, error) {
	v, err := keyring.Get(keyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Debug("keychain read failed", "item", item, "error", err)
		return "", fmt.Errorf("failed to read %s from OS keychain: %w", item, err)
	}
	return v, nil
}

func (km *KeyringManager) set(item, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(keyringService, item, value); err != nil {
		return fmt.Errorf("failed to save %s to OS keychain: %w", item, err)
	}
	return nil
}

func (km *KeyringManager) GetOpenAIKey() (string, error)    { return km.get(keyringOpenAIItem) }
func (km *KeyringManager) SetOpenAIKey(v string) error      { return km.set(keyringOpenAIItem, v) }
func (km *KeyringManager) GetAnthropicKey() (string, error) { return km.get(keyringAnthropicItem) }
func (km *KeyringManager) SetAnthropicKey(v string) error   { return km.set(keyringAnthropicItem, v) }
func (km *KeyringManager) GetGeminiKey() (string, error)    { return km.get(keyringGeminiItem) }
func (km *KeyringManager) SetGeminiKey(v string) error      { return km.set(keyringGeminiItem, v) }

// IsAvailable probes the OS keychain with a harmless lookup; false on
// headless systems (CI) where no Secret Service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(keyringService, "availability-probe")
	if err == keyring.ErrNotFound || err == nil {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// applyKeychainOverrides fills in any LLM key left empty after file and
// environment-variable resolution, using whichever keys the OS keychain
// has stored. Called only when LLM.UseKeychain is set.
func applyKeychainOverrides(cfg *Config) {
	km := NewKeyringManager()
	if !km.IsAvailable() {
		return
	}
	if cfg.LLM.OpenAIKey == "" {
		if v, err := km.GetOpenAIKey(); err == nil && v != "" {
			cfg.LLM.OpenAIKey = v
		}
	}
	if cfg.LLM.AnthropicKey == "" {
		if v, err := km.GetAnthropicKey(); err == nil && v != "" {
			cfg.LLM.AnthropicKey = v
		}
	}
	if cfg.LLM.GeminiKey == "" {
		if v, err := km.GetGeminiKey(); err == nil && v != "" {
			cfg.LLM.GeminiKey = v
		}
	}
}

// MaskKey masks a credential for display: first 7 and last 4 characters.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", key[:7], key[len(key)-4:])
}
