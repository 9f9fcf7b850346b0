package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/featuremill/featuremill/internal/domain/feature"
)

// Config holds the featuremill pipeline configuration.
type Config struct {
	Pipeline  PipelineConfig         `yaml:"pipeline"`
	Splits    map[string]SplitConfig `yaml:"splits"`
	Features  []FeatureConfig        `yaml:"features"`
	Artifacts ArtifactsConfig        `yaml:"artifacts"`
	Output    OutputConfig           `yaml:"output"`
	HTTP      HTTPConfig             `yaml:"http"`
	Logging   LoggingConfig          `yaml:"logging"`
}

// PipelineConfig holds run-level settings.
type PipelineConfig struct {
	Name          string `yaml:"name"`
	Workers       int    `yaml:"workers"`         // statistics partitions and transform workers
	FailOnAnomaly bool   `yaml:"fail_on_anomaly"` // CI-style gating; default is report-and-proceed
}

// SplitConfig names one data split input.
type SplitConfig struct {
	Format string `yaml:"format"` // csv, parquet (default: csv)
	Path   string `yaml:"path"`
}

// FeatureConfig declares one feature of the dataset.
type FeatureConfig struct {
	Name    string `yaml:"name"`
	Role    string `yaml:"role"` // numeric, categorical, bucketized, label
	Buckets int    `yaml:"buckets,omitempty"`
}

// ArtifactsConfig holds analyzer-params persistence settings.
type ArtifactsConfig struct {
	Backend string      `yaml:"backend"` // fs, redis (default: fs)
	Dir     string      `yaml:"dir"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds redis artifact store settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OutputConfig holds transformed-output settings.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPConfig holds transform service settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Pipeline.Name == "" {
		c.Pipeline.Name = "default"
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = runtime.NumCPU()
	}
	if c.Artifacts.Backend == "" {
		c.Artifacts.Backend = "fs"
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "artifacts"
	}
	if c.Artifacts.Redis.KeyPrefix == "" {
		c.Artifacts.Redis.KeyPrefix = "featuremill:params:"
	}
	if c.Artifacts.Redis.ReadinessTimeout <= 0 {
		c.Artifacts.Redis.ReadinessTimeout = 10
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "out"
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	for name, s := range c.Splits {
		if s.Format == "" {
			s.Format = "csv"
			c.Splits[name] = s
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("features is required")
	}
	if _, err := c.Spec(); err != nil {
		return err
	}
	switch c.Artifacts.Backend {
	case "fs":
	case "redis":
		if len(c.Artifacts.Redis.Addrs) == 0 {
			return fmt.Errorf("artifacts.redis.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("artifacts.backend must be \"fs\" or \"redis\", got %q", c.Artifacts.Backend)
	}
	for name, s := range c.Splits {
		if s.Path == "" {
			return fmt.Errorf("splits.%s.path is required", name)
		}
		switch s.Format {
		case "csv", "parquet":
		default:
			return fmt.Errorf("splits.%s.format must be \"csv\" or \"parquet\", got %q", name, s.Format)
		}
	}
	if c.HTTP.Port != 0 && (c.HTTP.Port < 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// Spec builds the validated feature spec from the declared features.
func (c *Config) Spec() (feature.Spec, error) {
	features := make([]feature.Feature, 0, len(c.Features))
	for _, fc := range c.Features {
		f, err := feature.New(fc.Name, feature.Role(fc.Role), fc.Buckets)
		if err != nil {
			return feature.Spec{}, fmt.Errorf("features: %w", err)
		}
		features = append(features, f)
	}
	spec, err := feature.NewSpec(features)
	if err != nil {
		return feature.Spec{}, fmt.Errorf("features: %w", err)
	}
	return spec, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
