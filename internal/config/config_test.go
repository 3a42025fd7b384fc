package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"BTXCONV_CONFIG", "PORT", "SERVER_ADDR", "MAX_UPLOAD_MB", "UPLOADS_DIR", "OUTPUTS_DIR",
	"ISOLATE_OUTPUTS", "WORKSPACE_MAX_AGE_MINUTES", "SWEEP_INTERVAL_MINUTES", "PVR_TEX_TOOL_PATH",
	"CONVERTER_TIMEOUT_SECONDS", "BTX_MAGIC", "BATCH_CONCURRENCY", "STRICT_EXTENSIONS",
	"LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":3022" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Converter.Path != "./PVRTexToolCLI" {
		t.Fatalf("unexpected converter path %q", cfg.Converter.Path)
	}
	if cfg.ConverterTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.ConverterTimeout())
	}
	if cfg.MaxUploadBytes() != 100<<20 {
		t.Fatalf("unexpected upload cap %d", cfg.MaxUploadBytes())
	}
	magic, err := cfg.Magic()
	if err != nil || !bytes.Equal(magic, []byte{0x4B, 0x54, 0x58, 0x11}) {
		t.Fatalf("unexpected magic %x (%v)", magic, err)
	}
	if !cfg.Storage.IsolateOutputs || cfg.Converter.BatchConcurrency != 1 {
		t.Fatalf("unexpected storage defaults %+v %+v", cfg.Storage, cfg.Converter)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("PVR_TEX_TOOL_PATH", "/opt/pvr/PVRTexToolCLI")
	t.Setenv("CONVERTER_TIMEOUT_SECONDS", "5")
	t.Setenv("ISOLATE_OUTPUTS", "false")
	t.Setenv("BATCH_CONCURRENCY", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8081" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Converter.Path != "/opt/pvr/PVRTexToolCLI" || cfg.Converter.TimeoutSeconds != 5 {
		t.Fatalf("unexpected converter %+v", cfg.Converter)
	}
	if cfg.Storage.IsolateOutputs {
		t.Fatalf("expected isolate_outputs override")
	}
	if cfg.Converter.BatchConcurrency != 1 {
		t.Fatalf("invalid int should fall back, got %d", cfg.Converter.BatchConcurrency)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "btxconv.toml")
	body := `
[server]
addr = ":9000"

[storage]
uploads_dir = "/srv/uploads"

[converter]
batch_concurrency = 4
btx_magic = "0x42545831"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BTXCONV_CONFIG", path)
	t.Setenv("UPLOADS_DIR", "/tmp/override")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Converter.BatchConcurrency != 4 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Storage.UploadsDir != "/tmp/override" {
		t.Fatalf("env should override file, got %q", cfg.Storage.UploadsDir)
	}
	if cfg.Storage.OutputsDir != "./outputs" {
		t.Fatalf("unset file keys should keep defaults, got %q", cfg.Storage.OutputsDir)
	}
	magic, _ := cfg.Magic()
	if string(magic) != "BTX1" {
		t.Fatalf("unexpected magic %q", magic)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}

	t.Setenv("BTX_MAGIC", "4b54")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "4 bytes") {
		t.Fatalf("expected magic length error, got %v", err)
	}

	t.Setenv("BTX_MAGIC", "zzzzzzzz")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected hex decode error")
	}
}
