package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains listener settings.
type Server struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Storage contains workspace and output area settings.
type Storage struct {
	UploadsDir             string `toml:"uploads_dir"`
	OutputsDir             string `toml:"outputs_dir"`
	IsolateOutputs         bool   `toml:"isolate_outputs"`
	WorkspaceMaxAgeMinutes int    `toml:"workspace_max_age_minutes"`
	SweepIntervalMinutes   int    `toml:"sweep_interval_minutes"`
}

// Converter contains external tool and framing settings.
type Converter struct {
	Path             string `toml:"path"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	BTXMagic         string `toml:"btx_magic"`
	BatchConcurrency int    `toml:"batch_concurrency"`
	StrictExtensions bool   `toml:"strict_extensions"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config holds runtime settings for the server and CLI.
type Config struct {
	Server    Server    `toml:"server"`
	Storage   Storage   `toml:"storage"`
	Converter Converter `toml:"converter"`
	Logging   Logging   `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:        ":3022",
			MaxUploadMB: 100,
		},
		Storage: Storage{
			UploadsDir:             "./uploads",
			OutputsDir:             "./outputs",
			IsolateOutputs:         true,
			WorkspaceMaxAgeMinutes: 60,
			SweepIntervalMinutes:   10,
		},
		Converter: Converter{
			Path:             "./PVRTexToolCLI",
			TimeoutSeconds:   30,
			BTXMagic:         "4b545811",
			BatchConcurrency: 1,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Load reads defaults, then the TOML file named by path (or BTXCONV_CONFIG when
// path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("BTXCONV_CONFIG"))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %q not found", path)
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", c.Server.MaxUploadMB)

	c.Storage.UploadsDir = getEnv("UPLOADS_DIR", c.Storage.UploadsDir)
	c.Storage.OutputsDir = getEnv("OUTPUTS_DIR", c.Storage.OutputsDir)
	c.Storage.IsolateOutputs = getEnvBool("ISOLATE_OUTPUTS", c.Storage.IsolateOutputs)
	c.Storage.WorkspaceMaxAgeMinutes = getEnvInt("WORKSPACE_MAX_AGE_MINUTES", c.Storage.WorkspaceMaxAgeMinutes)
	c.Storage.SweepIntervalMinutes = getEnvInt("SWEEP_INTERVAL_MINUTES", c.Storage.SweepIntervalMinutes)

	c.Converter.Path = getEnv("PVR_TEX_TOOL_PATH", c.Converter.Path)
	c.Converter.TimeoutSeconds = getEnvInt("CONVERTER_TIMEOUT_SECONDS", c.Converter.TimeoutSeconds)
	c.Converter.BTXMagic = getEnv("BTX_MAGIC", c.Converter.BTXMagic)
	c.Converter.BatchConcurrency = getEnvInt("BATCH_CONCURRENCY", c.Converter.BatchConcurrency)
	c.Converter.StrictExtensions = getEnvBool("STRICT_EXTENSIONS", c.Converter.StrictExtensions)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Validate checks that limits are positive and the magic decodes to 4 bytes.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr is required")
	}
	if strings.TrimSpace(c.Storage.UploadsDir) == "" || strings.TrimSpace(c.Storage.OutputsDir) == "" {
		return errors.New("uploads_dir and outputs_dir are required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Converter.TimeoutSeconds <= 0 {
		return fmt.Errorf("converter timeout_seconds must be positive, got %d", c.Converter.TimeoutSeconds)
	}
	if c.Converter.BatchConcurrency <= 0 {
		return fmt.Errorf("batch_concurrency must be positive, got %d", c.Converter.BatchConcurrency)
	}
	if _, err := c.Magic(); err != nil {
		return err
	}
	return nil
}

// Magic decodes the configured BTX header.
func (c Config) Magic() ([]byte, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(c.Converter.BTXMagic), "0x")
	magic, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("btx_magic: %w", err)
	}
	if len(magic) != 4 {
		return nil, fmt.Errorf("btx_magic must encode 4 bytes, got %d", len(magic))
	}
	return magic, nil
}

// ConverterTimeout returns the per-invocation limit.
func (c Config) ConverterTimeout() time.Duration {
	return time.Duration(c.Converter.TimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body cap.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// WorkspaceMaxAge returns the age after which leftovers are swept. Zero disables sweeping.
func (c Config) WorkspaceMaxAge() time.Duration {
	return time.Duration(c.Storage.WorkspaceMaxAgeMinutes) * time.Minute
}

// SweepInterval returns the period between sweeps.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Storage.SweepIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	var out int
	_, err := fmt.Sscanf(value, "%d", &out)
	if err != nil || out <= 0 {
		return fallback
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
