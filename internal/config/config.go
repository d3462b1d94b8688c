// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text, json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// WorkerCount bounds how many browser sessions run at once.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds how many accepted requests may wait for a worker.
	QueueSize int `koanf:"queue_size"`

	// CatalogPath points at the static price list.
	CatalogPath string `koanf:"catalog_path"`
	// MatchCacheSize caps the resolution memo; 0 disables it.
	MatchCacheSize int `koanf:"match_cache_size"`

	// ProfileURLTemplate is formatted with the player name.
	ProfileURLTemplate string `koanf:"profile_url_template"`
	// NotFoundMarker is the page text that signals an unknown player.
	NotFoundMarker string `koanf:"not_found_marker"`

	// BrowserPath selects a browser binary; empty uses the system install.
	BrowserPath string `koanf:"browser_path"`
	// BrowserBundled marks BrowserPath as a portable build that must be made executable.
	BrowserBundled bool `koanf:"browser_bundled"`
	Headless       bool `koanf:"headless"`
	ViewportWidth  int  `koanf:"viewport_width"`
	ViewportHeight int  `koanf:"viewport_height"`

	PageLoadTimeoutMS int `koanf:"page_load_timeout_ms"`
	ElementWaitMS     int `koanf:"element_wait_ms"`
	SettleDelayMS     int `koanf:"settle_delay_ms"`
	ScrollOffsetPX    int `koanf:"scroll_offset_px"`

	// NavigationsPerSecond paces profile loads across all workers; 0 disables pacing.
	NavigationsPerSecond float64 `koanf:"navigations_per_second"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8000",
		WorkerCount:          3,
		QueueSize:            64,
		CatalogPath:          "prices.json",
		MatchCacheSize:       10_000,
		ProfileURLTemplate:   "https://example.com/player/%s",
		NotFoundMarker:       "Player not found",
		Headless:             true,
		ViewportWidth:        1920,
		ViewportHeight:       1080,
		PageLoadTimeoutMS:    30_000,
		ElementWaitMS:        5_000,
		SettleDelayMS:        3_000,
		ScrollOffsetPX:       800,
		NavigationsPerSecond: 2,
		MaxLeaderboardLimit:  100,
	}
}
