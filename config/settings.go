// Package config provides application settings loaded from an optional YAML
// file and environment variables.
//
// Settings are created via Load() which handles:
// - YAML file overlay on top of defaults
// - Environment variable parsing with validation
// - Provider-specific configuration lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Storage  StorageConfig
	Autosave AutosaveConfig
	Dispatch DispatchConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
	Timeout     time.Duration
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Backend string // sqlite, dir or memory
	Path    string
}

// AutosaveConfig holds notes autosave timing.
type AutosaveConfig struct {
	Delay       time.Duration
	SavedWindow time.Duration
}

// DispatchConfig holds bulk messaging defaults.
type DispatchConfig struct {
	LinkBase string
	Delay    time.Duration
	Opener   string // browser, system, telegram or dry-run
}

// Storage backends.
const (
	BackendSqlite = "sqlite"
	BackendDir    = "dir"
	BackendMemory = "memory"
)

// Dispatch openers.
const (
	OpenerBrowser  = "browser"
	OpenerSystem   = "system"
	OpenerTelegram = "telegram"
	OpenerDryRun   = "dry-run"
)

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// File is the YAML configuration document. Zero values leave defaults alone.
type File struct {
	LLM struct {
		Provider    string         `yaml:"provider"`
		Model       string         `yaml:"model"`
		MaxTokens   uint32         `yaml:"max_tokens"`
		Temperature *float64       `yaml:"temperature"`
		Timeout     *time.Duration `yaml:"timeout"`
	} `yaml:"llm"`
	Storage struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`
	Autosave struct {
		Delay       time.Duration `yaml:"delay"`
		SavedWindow time.Duration `yaml:"saved_window"`
	} `yaml:"autosave"`
	Dispatch struct {
		LinkBase string        `yaml:"link_base"`
		Delay    time.Duration `yaml:"delay"`
		Opener   string        `yaml:"opener"`
	} `yaml:"dispatch"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &f, nil
}

// New creates settings for the specified provider from defaults and environment variables.
func New(provider string) (Settings, error) {
	return Load("", provider)
}

// Load builds settings from defaults, then the YAML file at path (if any),
// then environment variables. A non-empty provider argument wins over both.
// Returns an error if the provider is unknown or a value is invalid.
func Load(path, provider string) (Settings, error) {
	s := defaults()

	var fileModel, fileProvider string
	if path != "" {
		f, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		s.apply(f)
		fileModel = f.LLM.Model
		fileProvider = s.LLM.Provider
	}

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}

	if provider != "" {
		s.LLM.Provider = normalizeProvider(provider)
	}

	// A model chosen for another provider does not carry over.
	if s.LLM.Provider != fileProvider {
		fileModel = ""
	}

	info, err := getProviderInfo(s.LLM.Provider)
	if err != nil {
		return Settings{}, err
	}

	switch {
	case os.Getenv(info.modelEnv) != "":
		s.LLM.Model = os.Getenv(info.modelEnv)
	case fileModel != "":
		s.LLM.Model = fileModel
	default:
		s.LLM.Model = info.defaultModel
	}

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    "gemini",
			MaxTokens:   2048,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendSqlite,
		},
		Autosave: AutosaveConfig{
			Delay:       1000 * time.Millisecond,
			SavedWindow: 2000 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			LinkBase: "https://wa.me",
			Delay:    3 * time.Second,
			Opener:   OpenerSystem,
		},
	}
}

func (s *Settings) apply(f *File) {
	if f.LLM.Provider != "" {
		s.LLM.Provider = normalizeProvider(f.LLM.Provider)
	}
	if f.LLM.MaxTokens > 0 {
		s.LLM.MaxTokens = f.LLM.MaxTokens
	}
	if f.LLM.Temperature != nil {
		s.LLM.Temperature = *f.LLM.Temperature
	}
	if f.LLM.Timeout != nil {
		s.LLM.Timeout = *f.LLM.Timeout
	}
	if f.Storage.Backend != "" {
		s.Storage.Backend = strings.ToLower(f.Storage.Backend)
	}
	if f.Storage.Path != "" {
		s.Storage.Path = f.Storage.Path
	}
	if f.Autosave.Delay > 0 {
		s.Autosave.Delay = f.Autosave.Delay
	}
	if f.Autosave.SavedWindow > 0 {
		s.Autosave.SavedWindow = f.Autosave.SavedWindow
	}
	if f.Dispatch.LinkBase != "" {
		s.Dispatch.LinkBase = f.Dispatch.LinkBase
	}
	if f.Dispatch.Delay > 0 {
		s.Dispatch.Delay = f.Dispatch.Delay
	}
	if f.Dispatch.Opener != "" {
		s.Dispatch.Opener = strings.ToLower(f.Dispatch.Opener)
	}
}

func (s *Settings) applyEnv() error {
	var err error

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		s.LLM.Provider = normalizeProvider(v)
	}
	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", s.LLM.Temperature); err != nil {
		return err
	}
	if s.LLM.Timeout, err = getEnvDuration("LLM_TIMEOUT", s.LLM.Timeout); err != nil {
		return err
	}

	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		s.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("STORAGE_PATH"); v != "" {
		s.Storage.Path = v
	}

	delayMs, err := getEnvInt("AUTOSAVE_DELAY_MS", int(s.Autosave.Delay/time.Millisecond))
	if err != nil {
		return err
	}
	s.Autosave.Delay = time.Duration(delayMs) * time.Millisecond

	windowMs, err := getEnvInt("AUTOSAVE_SAVED_WINDOW_MS", int(s.Autosave.SavedWindow/time.Millisecond))
	if err != nil {
		return err
	}
	s.Autosave.SavedWindow = time.Duration(windowMs) * time.Millisecond

	if v := os.Getenv("DISPATCH_LINK_BASE"); v != "" {
		s.Dispatch.LinkBase = v
	}
	if s.Dispatch.Delay, err = getEnvDuration("DISPATCH_DELAY", s.Dispatch.Delay); err != nil {
		return err
	}
	if v := os.Getenv("DISPATCH_OPENER"); v != "" {
		s.Dispatch.Opener = strings.ToLower(v)
	}
	return nil
}

func (s *Settings) validate() error {
	switch s.Storage.Backend {
	case BackendSqlite, BackendDir, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend: %q", s.Storage.Backend)
	}
	switch s.Dispatch.Opener {
	case OpenerBrowser, OpenerSystem, OpenerTelegram, OpenerDryRun:
	default:
		return fmt.Errorf("unknown dispatch opener: %q", s.Dispatch.Opener)
	}
	if s.Autosave.Delay <= 0 || s.Autosave.SavedWindow <= 0 {
		return errors.New("autosave delay and saved window must be positive")
	}
	if s.Dispatch.Delay < 0 {
		return errors.New("dispatch delay must not be negative")
	}
	if s.LLM.Timeout < 0 {
		return errors.New("llm timeout must not be negative")
	}
	return nil
}

// StoragePath returns the configured path, or a per-user default for the backend.
func (s Settings) StoragePath() (string, error) {
	if s.Storage.Path != "" {
		return s.Storage.Path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	if s.Storage.Backend == BackendDir {
		return filepath.Join(base, "toolsuite", "data"), nil
	}
	return filepath.Join(base, "toolsuite", "toolsuite.db"), nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q (supported: %s)", provider, strings.Join(SupportedProviders(), ", "))
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" && provider == "gemini" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// TelegramToken returns the bot token used by the telegram opener.
func TelegramToken() (string, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return "", errors.New("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	return token, nil
}

// SupportedProviders returns the supported provider names in sorted order.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
