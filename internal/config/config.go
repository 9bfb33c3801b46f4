package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete hvsearch configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Models    ModelsConfig    `yaml:"models" json:"models"`
	Normalize NormalizeConfig `yaml:"normalize" json:"normalize"`
	Build     BuildConfig     `yaml:"build" json:"build"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// IndexConfig locates the persisted index.
type IndexConfig struct {
	// Source is a local path, an http(s) URL or an s3://bucket/key locator.
	Source string `yaml:"source" json:"source"`

	// CacheDir keeps downloaded copies of remote indexes. Empty disables it.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	S3 S3Config `yaml:"s3" json:"s3"`
}

// S3Config configures access to an S3-compatible object store.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"-"`
}

// SearchConfig configures query handling.
type SearchConfig struct {
	// TopK is the number of results when a caller does not ask (default: 1).
	TopK int `yaml:"top_k" json:"top_k"`

	// MaxTopK caps caller-supplied top_k (default: 50).
	MaxTopK int `yaml:"max_top_k" json:"max_top_k"`

	// Strategy is "exact" (default) or "hnsw".
	Strategy string `yaml:"strategy" json:"strategy"`

	HNSWM        int `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`

	// LexicalFallback enables substring matching when no provider answers.
	// Nil means enabled.
	LexicalFallback *bool `yaml:"lexical_fallback,omitempty" json:"lexical_fallback,omitempty"`

	// ConfidenceThreshold is the score below which the CLI reports that no
	// suitable translation was found.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
}

// FallbackEnabled reports whether the lexical fallback is on.
func (s SearchConfig) FallbackEnabled() bool {
	return s.LexicalFallback == nil || *s.LexicalFallback
}

// ModelsConfig configures embedding providers and their manager.
type ModelsConfig struct {
	// Device is auto, cpu or cuda.
	Device string `yaml:"device" json:"device"`

	// CacheEnabled turns on the query encoding cache. Nil means enabled.
	CacheEnabled *bool `yaml:"cache_enabled,omitempty" json:"cache_enabled,omitempty"`
	CacheSize    int   `yaml:"cache_size" json:"cache_size"`

	LoadTimeout    time.Duration `yaml:"load_timeout" json:"load_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	BatchSize      int           `yaml:"batch_size" json:"batch_size"`

	// Providers are queried in this order.
	Providers []ProviderConfig `yaml:"providers" json:"providers"`
}

// CacheOn reports whether the encoding cache is on.
func (m ModelsConfig) CacheOn() bool {
	return m.CacheEnabled == nil || *m.CacheEnabled
}

// ProviderConfig describes one embedding provider.
type ProviderConfig struct {
	ID string `yaml:"id" json:"id"`

	// Kind is "subword" (text-embeddings-inference server) or "sentence"
	// (Ollama server).
	Kind      string `yaml:"kind" json:"kind"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Model     string `yaml:"model" json:"model"`
	MaxLength int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
}

// NormalizeConfig configures text normalization.
type NormalizeConfig struct {
	// CaseFold folds case after NFC. Nil means enabled.
	CaseFold  *bool    `yaml:"case_fold,omitempty" json:"case_fold,omitempty"`
	Stopwords []string `yaml:"stopwords,omitempty" json:"stopwords,omitempty"`
}

// CaseFoldOn reports whether case folding is on.
func (n NormalizeConfig) CaseFoldOn() bool {
	return n.CaseFold == nil || *n.CaseFold
}

// BuildConfig names the CSV columns read by the index builder.
type BuildConfig struct {
	SourceColumn      string `yaml:"source_column" json:"source_column"`
	TranslationColumn string `yaml:"translation_column" json:"translation_column"`
	ReferenceColumn   string `yaml:"reference_column" json:"reference_column"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format" json:"format"`

	// File enables a rotating log file in addition to stderr. Empty disables it.
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// ServerConfig configures the tool server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
}

// Provider defaults.
const (
	DefaultSubwordEndpoint  = "http://localhost:8080"
	DefaultSubwordModel     = "vinai/phobert-base"
	DefaultSentenceEndpoint = "http://localhost:11434"
	DefaultSentenceModel    = "labse"
)

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Source:       "han_viet_index.gob",
			CacheDir:     filepath.Join(DefaultDataDir(), "cache"),
			FetchTimeout: 5 * time.Minute,
		},
		Search: SearchConfig{
			TopK:                1,
			MaxTopK:             50,
			Strategy:            "exact",
			HNSWM:               16,
			HNSWEfSearch:        100,
			ConfidenceThreshold: 0.7,
		},
		Models: ModelsConfig{
			Device:         "auto",
			CacheSize:      1000,
			LoadTimeout:    2 * time.Minute,
			RequestTimeout: 60 * time.Second,
			BatchSize:      32,
			Providers:      DefaultProviders(),
		},
		Build: BuildConfig{
			SourceColumn:      "Câu tiếng Hán",
			TranslationColumn: "translation",
			ReferenceColumn:   "best_match",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Server: ServerConfig{
			Transport: "stdio",
		},
	}
}

// DefaultProviders returns the sub-word provider followed by the sentence
// provider.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{ID: "phobert", Kind: "subword", Endpoint: DefaultSubwordEndpoint, Model: DefaultSubwordModel, MaxLength: 256},
		{ID: "labse", Kind: "sentence", Endpoint: DefaultSentenceEndpoint, Model: DefaultSentenceModel},
	}
}

// DefaultDataDir returns ~/.hvsearch, or a temp directory when there is no home.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".hvsearch")
	}
	return filepath.Join(home, ".hvsearch")
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/hvsearch/config.yaml, else ~/.config/hvsearch/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hvsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hvsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "hvsearch", "config.yaml")
}

// Load loads configuration for the given working directory. It applies, in
// order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/hvsearch/config.yaml)
//  3. Project config (.hvsearch.yaml in dir)
//  4. Environment variables (HVSEARCH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{".hvsearch.yaml", ".hvsearch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads defaults, then path, then environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith copies the values set in other over c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setString(&c.Index.Source, other.Index.Source)
	setString(&c.Index.CacheDir, other.Index.CacheDir)
	setDuration(&c.Index.FetchTimeout, other.Index.FetchTimeout)
	setString(&c.Index.S3.Endpoint, other.Index.S3.Endpoint)
	setString(&c.Index.S3.Region, other.Index.S3.Region)
	setString(&c.Index.S3.AccessKey, other.Index.S3.AccessKey)
	setString(&c.Index.S3.SecretKey, other.Index.S3.SecretKey)

	setInt(&c.Search.TopK, other.Search.TopK)
	setInt(&c.Search.MaxTopK, other.Search.MaxTopK)
	setString(&c.Search.Strategy, other.Search.Strategy)
	setInt(&c.Search.HNSWM, other.Search.HNSWM)
	setInt(&c.Search.HNSWEfSearch, other.Search.HNSWEfSearch)
	if other.Search.LexicalFallback != nil {
		c.Search.LexicalFallback = other.Search.LexicalFallback
	}
	if other.Search.ConfidenceThreshold != 0 {
		c.Search.ConfidenceThreshold = other.Search.ConfidenceThreshold
	}

	setString(&c.Models.Device, other.Models.Device)
	if other.Models.CacheEnabled != nil {
		c.Models.CacheEnabled = other.Models.CacheEnabled
	}
	setInt(&c.Models.CacheSize, other.Models.CacheSize)
	setDuration(&c.Models.LoadTimeout, other.Models.LoadTimeout)
	setDuration(&c.Models.RequestTimeout, other.Models.RequestTimeout)
	setInt(&c.Models.BatchSize, other.Models.BatchSize)
	// A provider list replaces the defaults as a whole, keeping its order.
	if len(other.Models.Providers) > 0 {
		c.Models.Providers = other.Models.Providers
	}

	if other.Normalize.CaseFold != nil {
		c.Normalize.CaseFold = other.Normalize.CaseFold
	}
	if len(other.Normalize.Stopwords) > 0 {
		c.Normalize.Stopwords = other.Normalize.Stopwords
	}

	setString(&c.Build.SourceColumn, other.Build.SourceColumn)
	setString(&c.Build.TranslationColumn, other.Build.TranslationColumn)
	setString(&c.Build.ReferenceColumn, other.Build.ReferenceColumn)

	setString(&c.Logging.Level, other.Logging.Level)
	setString(&c.Logging.Format, other.Logging.Format)
	setString(&c.Logging.File, other.Logging.File)
	setInt(&c.Logging.MaxSizeMB, other.Logging.MaxSizeMB)
	setInt(&c.Logging.MaxFiles, other.Logging.MaxFiles)

	setString(&c.Server.Transport, other.Server.Transport)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies HVSEARCH_* environment variable overrides.
// Malformed numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HVSEARCH_INDEX"); v != "" {
		c.Index.Source = v
	}
	if v := os.Getenv("HVSEARCH_CACHE_DIR"); v != "" {
		c.Index.CacheDir = v
	}
	if v := os.Getenv("HVSEARCH_S3_ENDPOINT"); v != "" {
		c.Index.S3.Endpoint = v
	}
	if v := os.Getenv("HVSEARCH_S3_REGION"); v != "" {
		c.Index.S3.Region = v
	}
	if v := os.Getenv("HVSEARCH_S3_ACCESS_KEY"); v != "" {
		c.Index.S3.AccessKey = v
	}
	if v := os.Getenv("HVSEARCH_S3_SECRET_KEY"); v != "" {
		c.Index.S3.SecretKey = v
	}

	if v := os.Getenv("HVSEARCH_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.TopK = k
		}
	}
	if v := os.Getenv("HVSEARCH_STRATEGY"); v != "" {
		c.Search.Strategy = v
	}
	if v := os.Getenv("HVSEARCH_LEXICAL_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.LexicalFallback = &b
		}
	}

	if v := os.Getenv("HVSEARCH_DEVICE"); v != "" {
		c.Models.Device = v
	}
	if v := os.Getenv("HVSEARCH_LOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Models.LoadTimeout = d
		}
	}
	// HVSEARCH_<ID>_ENDPOINT points one provider elsewhere.
	for i := range c.Models.Providers {
		key := "HVSEARCH_" + strings.ToUpper(c.Models.Providers[i].ID) + "_ENDPOINT"
		if v := os.Getenv(key); v != "" {
			c.Models.Providers[i].Endpoint = v
		}
	}

	if v := os.Getenv("HVSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HVSEARCH_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Index.Source) == "" {
		return fmt.Errorf("index.source must not be empty")
	}
	if c.Index.FetchTimeout < 0 {
		return fmt.Errorf("index.fetch_timeout must be non-negative, got %s", c.Index.FetchTimeout)
	}

	if c.Search.TopK < 1 {
		return fmt.Errorf("search.top_k must be at least 1, got %d", c.Search.TopK)
	}
	if c.Search.MaxTopK < c.Search.TopK {
		return fmt.Errorf("search.max_top_k (%d) must be at least search.top_k (%d)", c.Search.MaxTopK, c.Search.TopK)
	}
	switch strings.ToLower(c.Search.Strategy) {
	case "exact", "hnsw":
	default:
		return fmt.Errorf("search.strategy must be 'exact' or 'hnsw', got %s", c.Search.Strategy)
	}
	if c.Search.HNSWM < 2 {
		return fmt.Errorf("search.hnsw_m must be at least 2, got %d", c.Search.HNSWM)
	}
	if c.Search.ConfidenceThreshold < 0 || c.Search.ConfidenceThreshold > 1 {
		return fmt.Errorf("search.confidence_threshold must be between 0 and 1, got %f", c.Search.ConfidenceThreshold)
	}

	switch strings.ToLower(c.Models.Device) {
	case "", "auto", "cpu", "cuda":
	default:
		return fmt.Errorf("models.device must be 'auto', 'cpu' or 'cuda', got %s", c.Models.Device)
	}
	if c.Models.CacheSize < 0 {
		return fmt.Errorf("models.cache_size must be non-negative, got %d", c.Models.CacheSize)
	}
	if c.Models.BatchSize < 1 {
		return fmt.Errorf("models.batch_size must be at least 1, got %d", c.Models.BatchSize)
	}
	seen := make(map[string]bool, len(c.Models.Providers))
	for i, p := range c.Models.Providers {
		if p.ID == "" {
			return fmt.Errorf("models.providers[%d].id must not be empty", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("models.providers: duplicate id %s", p.ID)
		}
		seen[p.ID] = true
		switch p.Kind {
		case "subword":
			if p.Endpoint == "" {
				return fmt.Errorf("models.providers[%s].endpoint is required for subword providers", p.ID)
			}
		case "sentence":
		default:
			return fmt.Errorf("models.providers[%s].kind must be 'subword' or 'sentence', got %s", p.ID, p.Kind)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'text', got %s", c.Logging.Format)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
