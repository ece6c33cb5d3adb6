package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all claimharvest configuration
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Registry  RegistryConfig  `yaml:"registry" json:"registry"`
	Secondary SecondaryConfig `yaml:"secondary" json:"secondary"`
	Batch     BatchConfig     `yaml:"batch" json:"batch"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// HTTPConfig controls transport behavior shared by both authorities
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`       // per-request timeout
	UserAgent string        `yaml:"user_agent" json:"user_agent"` // sent on secondary-source requests
}

// CacheConfig controls the success-only disk caches
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"` // root; authority subdirectories are derived
}

// ClaimsDir is the structured-claims cache directory.
func (c CacheConfig) ClaimsDir() string { return filepath.Join(c.Dir, "registry_claims") }

// FamilyDir is the family-document cache directory.
func (c CacheConfig) FamilyDir() string { return filepath.Join(c.Dir, "registry_family") }

// SecondaryDir is the extracted-claims-text cache directory.
func (c CacheConfig) SecondaryDir() string { return filepath.Join(c.Dir, "secondary_text") }

// RegistryConfig points at the official registry REST interface
type RegistryConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	TokenURL   string `yaml:"token_url" json:"token_url"`
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`
}

// SecondaryConfig points at the public per-publication page source
type SecondaryConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	MaxRetries  int    `yaml:"max_retries" json:"max_retries"`
	CheckRobots bool   `yaml:"check_robots" json:"check_robots"`
}

// BatchConfig controls the sequential batch loop
type BatchConfig struct {
	Sleep   time.Duration `yaml:"sleep" json:"sleep"`       // inter-request delay after live fetches
	MaxFail int           `yaml:"max_fail" json:"max_fail"` // halt after this many failed records; 0 = no ceiling
}

// OutputConfig controls record and run-log emission
type OutputConfig struct {
	RecordsPath string `yaml:"records_path" json:"records_path"`
	RunLogPath  string `yaml:"run_log_path" json:"run_log_path"` // empty derives <records>.runlog.jsonl
	Verbose     bool   `yaml:"verbose" json:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "claimharvest/0.1 (+https://github.com/ppiankov/claimharvest)",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".claimharvest-cache",
		},
		Registry: RegistryConfig{
			BaseURL:    "https://ops.epo.org/3.2/rest-services",
			TokenURL:   "https://ops.epo.org/3.2/auth/accesstoken",
			MaxRetries: 3,
		},
		Secondary: SecondaryConfig{
			Enabled:     true,
			BaseURL:     "https://patents.google.com",
			MaxRetries:  2,
			CheckRobots: true,
		},
		Batch: BatchConfig{
			Sleep:   time.Second,
			MaxFail: 0,
		},
		Output: OutputConfig{
			RecordsPath: "claims_extraction.jsonl",
		},
	}
}

// Credentials are the registry client-credentials pair. They are read
// from the environment only, never from config files.
type Credentials struct {
	Key    string
	Secret string
}

// LoadCredentials reads OPS_KEY/OPS_SECRET, accepting the EPO_OPS_*
// spellings as aliases. A missing pair is a fatal configuration error.
func LoadCredentials() (Credentials, error) {
	key := firstEnv("OPS_KEY", "EPO_OPS_KEY")
	secret := firstEnv("OPS_SECRET", "EPO_OPS_SECRET")
	if key == "" || secret == "" {
		return Credentials{}, fmt.Errorf("registry credentials not set: export OPS_KEY and OPS_SECRET (or EPO_OPS_KEY/EPO_OPS_SECRET)")
	}
	return Credentials{Key: key, Secret: secret}, nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
