package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Conversion and treatment calls
	// can run for minutes on long papers, so the default is generous.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperpress/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-2.5-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ConversionBackend identifies the PDF conversion tool.
type ConversionBackend string

const (
	// BackendFitz converts locally via MuPDF page rendering.
	BackendFitz ConversionBackend = "fitz"

	// BackendMarker shells out to the marker CLI in a container.
	BackendMarker ConversionBackend = "marker"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Backend selects the conversion tool: fitz or marker.
	Backend ConversionBackend `json:"backend" yaml:"backend"`
}

// TreatmentConfig holds settings for the AI cleanup stage.
type TreatmentConfig struct {
	AIConfig `yaml:",inline"`
}

// EPUBConfig holds settings for EPUB packaging.
type EPUBConfig struct {
	// Author is the metadata author written into generated books.
	Author string `json:"author" yaml:"author"`

	// Language is the metadata language code (default "en").
	Language string `json:"language" yaml:"language"`
}

// ServerConfig holds settings for the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr"`

	// WorkDir is the directory for uploads, extracted images, and the
	// upload registry. Empty means a fresh temp directory per run.
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`

	// MaxUploadMB is the upload size limit in MiB (default 100).
	MaxUploadMB int64 `json:"max_upload_mb" yaml:"max_upload_mb"`

	// SweepTTL is how long uploads live before the sweeper removes them
	// (default 2h). Zero disables sweeping.
	SweepTTL time.Duration `json:"sweep_ttl" yaml:"sweep_ttl"`

	// SweepInterval is how often the sweeper runs (default 10m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
}

// ClientConfig holds settings for the workflow client.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// ServerURL is the base URL of the paperpress server.
	ServerURL string `json:"server_url" yaml:"server_url"`
}

// Config groups all component configurations.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Treatment  TreatmentConfig  `json:"treatment" yaml:"treatment"`
	EPUB       EPUBConfig       `json:"epub" yaml:"epub"`
	Client     ClientConfig     `json:"client" yaml:"client"`
}

// DefaultConfig returns a Config populated with defaults. Values from the
// config file and environment are layered on top by the CLI.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8000",
			MaxUploadMB:   100,
			SweepTTL:      2 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Conversion: ConversionConfig{
			Backend: BackendFitz,
		},
		Treatment: TreatmentConfig{
			AIConfig: AIConfig{
				Model:      "gemini-2.5-pro",
				MaxRetries: 3,
			},
		},
		EPUB: EPUBConfig{
			Author:   "Academic Paper",
			Language: "en",
		},
		Client: ClientConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   10 * time.Minute,
				UserAgent: "paperpress/0.1",
			},
			ServerURL: "http://localhost:8000",
		},
	}
}
