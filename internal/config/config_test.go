package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Document.ImageWidth != 15 || cfg.Document.PaperSize != "A4" ||
		cfg.Document.OutputFormat != "docx" || cfg.Document.CaptionPosition != "bottom" {
		t.Errorf("unexpected document defaults %+v", cfg.Document)
	}
	if cfg.ProxyMode != "no-proxy" || cfg.ProxyPort != 8080 {
		t.Errorf("unexpected proxy defaults %s:%d", cfg.ProxyMode, cfg.ProxyPort)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.ini")

	cfg := NewConfig()
	cfg.ServerURL = "https://appendix.example.com"
	cfg.Document.ImageWidth = 12.5
	cfg.Document.PaperSize = "Letter"
	cfg.Document.OutputFormat = "pdf"
	cfg.Document.CaptionPosition = "top"
	cfg.Output.Destination = "s3://docs/appendix"
	cfg.Output.S3Region = "eu-west-1"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.corp"
	cfg.ProxyPort = 3128
	cfg.ProxyUser = "alice"
	cfg.ProxyPassword = "secret"
	cfg.NoProxy = "localhost"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.ServerURL != cfg.ServerURL || loaded.Document != cfg.Document {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
	if loaded.Output != cfg.Output {
		t.Errorf("output = %+v, want %+v", loaded.Output, cfg.Output)
	}
	if loaded.ProxyMode != "basic" || loaded.ProxyHost != "proxy.corp" || loaded.ProxyPort != 3128 ||
		loaded.ProxyUser != "alice" || loaded.NoProxy != "localhost" {
		t.Errorf("proxy settings not restored: %+v", loaded)
	}
	if loaded.ProxyPassword != "" {
		t.Error("proxy password must not be persisted")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("[server\nurl = x"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed ini")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvServerURL, "http://gen.internal:9000")
	t.Setenv(EnvImageWidth, "18.5")
	t.Setenv(EnvOutput, "/tmp/out")
	t.Setenv(EnvProxyPort, "9999")

	cfg := NewConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.ServerURL != "http://gen.internal:9000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Document.ImageWidth != 18.5 {
		t.Errorf("ImageWidth = %v", cfg.Document.ImageWidth)
	}
	if cfg.Output.Destination != "/tmp/out" {
		t.Errorf("Destination = %q", cfg.Output.Destination)
	}
	if cfg.ProxyPort != 9999 {
		t.Errorf("ProxyPort = %d", cfg.ProxyPort)
	}

	t.Setenv(EnvImageWidth, "wide")
	if err := NewConfig().ApplyEnv(); err == nil {
		t.Error("expected error for non-numeric width")
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "APPENDIX_PAPER_SIZE=Legal\nAPPENDIX_OUTPUT_FORMAT=pdf\n"
	if err := os.WriteFile(envFile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvOutputFormat, "docx")
	// Registered with t.Setenv so it is restored after the test
	t.Setenv(EnvPaperSize, "")
	os.Unsetenv(EnvPaperSize)

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv(EnvPaperSize); got != "Legal" {
		t.Errorf("%s = %q, want Legal", EnvPaperSize, got)
	}
	if got := os.Getenv(EnvOutputFormat); got != "docx" {
		t.Errorf("%s = %q, existing value should win", EnvOutputFormat, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"empty url", func(c *Config) { c.ServerURL = " " }, ErrMissingServerURL},
		{"relative url", func(c *Config) { c.ServerURL = "/upload" }, ErrInvalidServerURL},
		{"ftp url", func(c *Config) { c.ServerURL = "ftp://host" }, ErrInvalidServerURL},
		{"width too small", func(c *Config) { c.Document.ImageWidth = 7.5 }, ErrInvalidImageWidth},
		{"width too large", func(c *Config) { c.Document.ImageWidth = 20.5 }, ErrInvalidImageWidth},
		{"width at bounds", func(c *Config) { c.Document.ImageWidth = 20 }, nil},
		{"paper size", func(c *Config) { c.Document.PaperSize = "A3" }, ErrInvalidPaperSize},
		{"output format", func(c *Config) { c.Document.OutputFormat = "odt" }, ErrInvalidOutputFormat},
		{"caption", func(c *Config) { c.Document.CaptionPosition = "left" }, ErrInvalidCaptionPosition},
		{"proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"proxy mode case", func(c *Config) { c.ProxyMode = "NTLM" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEndpointURLs(t *testing.T) {
	cfg := NewConfig()
	cfg.ServerURL = "https://gen.example.com/"

	if got := cfg.UploadURL(); got != "https://gen.example.com/upload" {
		t.Errorf("UploadURL() = %q", got)
	}
	if got := cfg.HealthURL(); got != "https://gen.example.com/health" {
		t.Errorf("HealthURL() = %q", got)
	}
}
