package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/rescale/appendix-client/internal/constants"
)

// Config is the client configuration.
//
// INI format:
//
//	[server]
//	url = http://localhost:8000
//
//	[document]
//	image_width = 15
//	paper_size = A4
//	output_format = docx
//	caption_position = bottom
//
//	[output]
//	destination = ~/Downloads        ; or s3://bucket/prefix, azblob://account/container
//	s3_region = eu-west-1
//	s3_endpoint =
//	azure_sas =
//
//	[proxy]
//	mode = no-proxy                  ; no-proxy, system, basic, ntlm
//	host =
//	port = 8080
//	user =
//	no_proxy =
//	warmup = false
//
// The proxy password is never written to disk.
type Config struct {
	ServerURL string

	Document DocumentConfig
	Output   OutputConfig

	// Proxy settings
	ProxyMode     string // "no-proxy", "system", "basic", "ntlm"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool
}

// DocumentConfig holds the defaults the form starts with.
type DocumentConfig struct {
	ImageWidth      float64
	PaperSize       string
	OutputFormat    string
	CaptionPosition string
}

// OutputConfig says where generated documents go.
type OutputConfig struct {
	Destination string
	S3Region    string
	S3Endpoint  string
	AzureSAS    string
}

// Validation errors
var (
	ErrMissingServerURL       = errors.New("server url is required")
	ErrInvalidServerURL       = errors.New("server url must be an absolute http(s) URL")
	ErrInvalidImageWidth      = fmt.Errorf("image_width must be between %g and %g cm", constants.MinImageWidth, constants.MaxImageWidth)
	ErrInvalidPaperSize       = errors.New("paper_size must be one of A4, Letter, Legal")
	ErrInvalidOutputFormat    = errors.New("output_format must be docx or pdf")
	ErrInvalidCaptionPosition = errors.New("caption_position must be top or bottom")
	ErrInvalidProxyMode       = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
)

// Allowed enum values, in display order.
var (
	PaperSizes       = []string{"A4", "Letter", "Legal"}
	OutputFormats    = []string{"docx", "pdf"}
	CaptionPositions = []string{"top", "bottom"}
	ProxyModes       = []string{"no-proxy", "system", "basic", "ntlm"}
)

// Environment variables that override the file.
const (
	EnvServerURL       = "APPENDIX_SERVER_URL"
	EnvOutput          = "APPENDIX_OUTPUT"
	EnvImageWidth      = "APPENDIX_IMAGE_WIDTH"
	EnvPaperSize       = "APPENDIX_PAPER_SIZE"
	EnvOutputFormat    = "APPENDIX_OUTPUT_FORMAT"
	EnvCaptionPosition = "APPENDIX_CAPTION_POSITION"
	EnvS3Region        = "APPENDIX_S3_REGION"
	EnvS3Endpoint      = "APPENDIX_S3_ENDPOINT"
	EnvAzureSAS        = "APPENDIX_AZURE_SAS"
	EnvProxyMode       = "APPENDIX_PROXY_MODE"
	EnvProxyHost       = "APPENDIX_PROXY_HOST"
	EnvProxyPort       = "APPENDIX_PROXY_PORT"
	EnvProxyUser       = "APPENDIX_PROXY_USER"
	EnvProxyPassword   = "APPENDIX_PROXY_PASSWORD"
	EnvNoProxy         = "APPENDIX_NO_PROXY"
)

// NewConfig returns a config with default values.
func NewConfig() *Config {
	return &Config{
		ServerURL: constants.DefaultServerURL,
		Document: DocumentConfig{
			ImageWidth:      constants.DefaultImageWidth,
			PaperSize:       constants.DefaultPaperSize,
			OutputFormat:    constants.DefaultOutputFormat,
			CaptionPosition: constants.DefaultCaptionPosition,
		},
		ProxyMode: "no-proxy",
		ProxyPort: 8080,
	}
}

// Load reads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	server := iniFile.Section("server")
	cfg.ServerURL = server.Key("url").MustString(cfg.ServerURL)

	doc := iniFile.Section("document")
	cfg.Document.ImageWidth = doc.Key("image_width").MustFloat64(cfg.Document.ImageWidth)
	cfg.Document.PaperSize = doc.Key("paper_size").MustString(cfg.Document.PaperSize)
	cfg.Document.OutputFormat = doc.Key("output_format").MustString(cfg.Document.OutputFormat)
	cfg.Document.CaptionPosition = doc.Key("caption_position").MustString(cfg.Document.CaptionPosition)

	out := iniFile.Section("output")
	cfg.Output.Destination = out.Key("destination").String()
	cfg.Output.S3Region = out.Key("s3_region").String()
	cfg.Output.S3Endpoint = out.Key("s3_endpoint").String()
	cfg.Output.AzureSAS = out.Key("azure_sas").String()

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	return cfg, nil
}

// Save writes the configuration to an INI file.
// Creates parent directories if they don't exist.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	server, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("url").SetValue(cfg.ServerURL)

	doc, err := iniFile.NewSection("document")
	if err != nil {
		return fmt.Errorf("failed to create document section: %w", err)
	}
	doc.Key("image_width").SetValue(strconv.FormatFloat(cfg.Document.ImageWidth, 'f', -1, 64))
	doc.Key("paper_size").SetValue(cfg.Document.PaperSize)
	doc.Key("output_format").SetValue(cfg.Document.OutputFormat)
	doc.Key("caption_position").SetValue(cfg.Document.CaptionPosition)

	out, err := iniFile.NewSection("output")
	if err != nil {
		return fmt.Errorf("failed to create output section: %w", err)
	}
	out.Key("destination").SetValue(cfg.Output.Destination)
	out.Key("s3_region").SetValue(cfg.Output.S3Region)
	out.Key("s3_endpoint").SetValue(cfg.Output.S3Endpoint)
	out.Key("azure_sas").SetValue(cfg.Output.AzureSAS)

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(strconv.Itoa(cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(strconv.FormatBool(cfg.ProxyWarmup))

	return saveAtomic(iniFile, path)
}

// saveAtomic writes via a temp file and rename, with owner-only permissions
// since the file may hold a SAS token.
func saveAtomic(iniFile *ini.File, path string) error {
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set permissions on %s: %w", filepath.Base(path), err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are left alone and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from APPENDIX_* environment variables.
func (cfg *Config) ApplyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	setString(EnvServerURL, &cfg.ServerURL)
	setString(EnvOutput, &cfg.Output.Destination)
	setString(EnvPaperSize, &cfg.Document.PaperSize)
	setString(EnvOutputFormat, &cfg.Document.OutputFormat)
	setString(EnvCaptionPosition, &cfg.Document.CaptionPosition)
	setString(EnvS3Region, &cfg.Output.S3Region)
	setString(EnvS3Endpoint, &cfg.Output.S3Endpoint)
	setString(EnvAzureSAS, &cfg.Output.AzureSAS)
	setString(EnvProxyMode, &cfg.ProxyMode)
	setString(EnvProxyHost, &cfg.ProxyHost)
	setString(EnvProxyUser, &cfg.ProxyUser)
	setString(EnvProxyPassword, &cfg.ProxyPassword)
	setString(EnvNoProxy, &cfg.NoProxy)

	if v := strings.TrimSpace(os.Getenv(EnvImageWidth)); v != "" {
		width, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvImageWidth, v, err)
		}
		cfg.Document.ImageWidth = width
	}
	if v := strings.TrimSpace(os.Getenv(EnvProxyPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvProxyPort, v, err)
		}
		cfg.ProxyPort = port
	}
	return nil
}

// Resolve loads .env, the config file at path and the environment, in that
// order of increasing precedence, then validates the result.
func Resolve(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field; the first problem is returned.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	if err := ValidateImageWidth(cfg.Document.ImageWidth); err != nil {
		return err
	}
	if !oneOf(cfg.Document.PaperSize, PaperSizes) {
		return ErrInvalidPaperSize
	}
	if !oneOf(cfg.Document.OutputFormat, OutputFormats) {
		return ErrInvalidOutputFormat
	}
	if !oneOf(cfg.Document.CaptionPosition, CaptionPositions) {
		return ErrInvalidCaptionPosition
	}
	mode := strings.ToLower(cfg.ProxyMode)
	if mode != "" && !oneOf(mode, ProxyModes) {
		return ErrInvalidProxyMode
	}
	return nil
}

// ValidateImageWidth checks the slider range.
func ValidateImageWidth(width float64) error {
	if width < constants.MinImageWidth || width > constants.MaxImageWidth {
		return ErrInvalidImageWidth
	}
	return nil
}

// UploadURL is the generator endpoint derived from ServerURL.
func (cfg *Config) UploadURL() string {
	return strings.TrimSuffix(cfg.ServerURL, "/") + constants.UploadPath
}

// HealthURL is the liveness endpoint derived from ServerURL.
func (cfg *Config) HealthURL() string {
	return strings.TrimSuffix(cfg.ServerURL, "/") + constants.HealthPath
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
