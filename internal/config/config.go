package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-compare/internal/constants"
	"github.com/kozaktomas/face-compare/internal/facematch"
)

//go:embed providers.yaml
var providersYAML []byte

// Provider kinds understood by the embedding factory.
const (
	KindHTTP = "http"
	KindDlib = "dlib"
)

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Breaker   BreakerConfig
	Web       WebConfig
	Providers ProvidersConfig
}

type EmbeddingConfig struct {
	Provider     string        // preset name, defaults to insightface
	URL          string        // overrides the preset URL
	Metric       string        // overrides the preset metric
	ModelDir     string        // overrides the preset dlib model directory
	Timeout      time.Duration // per-request timeout, defaults to 60s
	MaxImageSize int           // images are downscaled to fit before extraction, 0 disables
}

type MatchConfig struct {
	Threshold float64 // default similarity threshold (0.6)
}

type BreakerConfig struct {
	MaxFailures int           // consecutive failures before the breaker opens
	OpenTimeout time.Duration // how long the breaker stays open
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS origins besides localhost
	MaxUploadSize  int64    // per-request multipart limit in bytes
}

type ProvidersConfig struct {
	Presets map[string]ProviderPreset `yaml:"providers"`
}

type ProviderPreset struct {
	Kind        string `yaml:"kind"`
	Model       string `yaml:"model"`
	URL         string `yaml:"url"`
	ModelDir    string `yaml:"model_dir"`
	Metric      string `yaml:"metric"`
	Description string `yaml:"description"`
}

// ProviderSettings is the fully resolved configuration of the active provider.
type ProviderSettings struct {
	Name         string
	Kind         string
	Model        string
	URL          string
	ModelDir     string
	Metric       facematch.Metric
	Timeout      time.Duration
	MaxImageSize int
	Breaker      BreakerConfig
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envNonNegativeInt is like envInt but accepts 0.
func envNonNegativeInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float. Returns the default
// value if the env var is unset or empty, and NaN if it does not parse, so
// that Validate rejects it instead of silently using the default.
func envFloat(key string, defaultVal float64) float64 {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// envDuration reads an environment variable as a positive duration ("30s", "2m").
// A bare integer is treated as seconds.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n > 0 {
			return time.Duration(n) * time.Second
		}
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	var providers ProvidersConfig
	if err := yaml.Unmarshal(providersYAML, &providers); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded providers.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			Provider:     envString("FACE_PROVIDER", constants.DefaultProvider),
			URL:          os.Getenv("EMBEDDING_URL"),
			Metric:       os.Getenv("FACE_METRIC"),
			ModelDir:     os.Getenv("DLIB_MODEL_DIR"),
			Timeout:      envDuration("EMBEDDING_TIMEOUT", constants.DefaultEmbeddingTimeout),
			MaxImageSize: envNonNegativeInt("EMBEDDING_MAX_IMAGE_SIZE", constants.MaxImageSize),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", constants.DefaultThreshold),
		},
		Breaker: BreakerConfig{
			MaxFailures: envInt("BREAKER_MAX_FAILURES", constants.DefaultBreakerMaxFailures),
			OpenTimeout: envDuration("BREAKER_OPEN_TIMEOUT", constants.DefaultBreakerOpenTimeout),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", constants.DefaultHost),
			Port:           envInt("WEB_PORT", constants.DefaultPort),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			MaxUploadSize:  int64(envInt("MAX_UPLOAD_SIZE", constants.MaxUploadSize)),
		},
		Providers: providers,
	}
}

// Validate rejects settings that would otherwise only fail on the first comparison.
func (c *Config) Validate() error {
	if err := facematch.ValidateThreshold(c.Match.Threshold); err != nil {
		return fmt.Errorf("MATCH_THRESHOLD: %w", err)
	}
	return nil
}

// PresetNames returns the names of all provider presets, sorted.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Providers.Presets))
	for name := range c.Providers.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProvider merges the selected preset with environment overrides.
// Unknown presets, kinds and metrics are rejected here so that a bad
// configuration fails at startup rather than on the first comparison.
func (c *Config) ResolveProvider() (ProviderSettings, error) {
	name := strings.TrimSpace(c.Embedding.Provider)
	preset, ok := c.Providers.Presets[name]
	if !ok {
		return ProviderSettings{}, fmt.Errorf("unknown face provider %q (available: %s)",
			name, strings.Join(c.PresetNames(), ", "))
	}

	if preset.Kind != KindHTTP && preset.Kind != KindDlib {
		return ProviderSettings{}, fmt.Errorf("face provider %q has unsupported kind %q", name, preset.Kind)
	}

	metricName := preset.Metric
	if c.Embedding.Metric != "" {
		metricName = c.Embedding.Metric
	}
	metric, err := facematch.MetricByName(metricName)
	if err != nil {
		return ProviderSettings{}, fmt.Errorf("face provider %q: %w", name, err)
	}

	settings := ProviderSettings{
		Name:         name,
		Kind:         preset.Kind,
		Model:        preset.Model,
		URL:          preset.URL,
		ModelDir:     preset.ModelDir,
		Metric:       metric,
		Timeout:      c.Embedding.Timeout,
		MaxImageSize: c.Embedding.MaxImageSize,
		Breaker:      c.Breaker,
	}
	if c.Embedding.URL != "" {
		settings.URL = c.Embedding.URL
	}
	if c.Embedding.ModelDir != "" {
		settings.ModelDir = c.Embedding.ModelDir
	}

	switch settings.Kind {
	case KindHTTP:
		if settings.URL == "" {
			return ProviderSettings{}, fmt.Errorf("face provider %q requires EMBEDDING_URL", name)
		}
	case KindDlib:
		if settings.ModelDir == "" {
			return ProviderSettings{}, fmt.Errorf("face provider %q requires DLIB_MODEL_DIR", name)
		}
	}

	return settings, nil
}
