package session

import (
	"log/slog"
	"time"
)

// Config configures the session registry and the shared browser it launches.
type Config struct {
	// Headful runs the browser with a visible window. Default is headless.
	Headful bool `yaml:"headful"`

	// SlowMotion inserts a delay between browser actions. Useful when an
	// operator watches a headful session.
	SlowMotion time.Duration `yaml:"slow_motion"`

	// NavTimeout bounds the navigation wait of Open. Default: 30s.
	NavTimeout time.Duration `yaml:"nav_timeout"`

	// FillTimeout bounds individual field interactions. Default: 20s.
	FillTimeout time.Duration `yaml:"fill_timeout"`

	// DownloadTimeout bounds the artifact recovery chain. Default: 15s.
	// Manual mode extends the download-event wait independently.
	DownloadTimeout time.Duration `yaml:"download_timeout"`

	// OutDir receives filled documents, screenshots and diagnostic dumps.
	OutDir string `yaml:"out_dir"`

	// Manual keeps sessions open for operator interaction (CAPTCHA solving,
	// payment selection) and extends the download wait accordingly.
	Manual bool `yaml:"manual"`

	// CaptureScreenshots saves a screenshot after each page fill.
	CaptureScreenshots bool `yaml:"capture_screenshots"`

	// CaptureDOM saves a DOM snapshot after each page fill.
	CaptureDOM bool `yaml:"capture_dom"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.FillTimeout <= 0 {
		c.FillTimeout = 20 * time.Second
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 15 * time.Second
	}
	if c.OutDir == "" {
		c.OutDir = "out"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
