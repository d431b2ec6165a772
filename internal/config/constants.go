package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout = 60 * time.Second
	AIRequestTimeout   = 3 * time.Minute
	AIShutdownTimeout  = 30 * time.Second
	ServerShutdownWait = 30 * time.Second
	TelemetryFlushWait = 5 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Server and pool defaults
const (
	DefaultServerPort          = "8080"
	DefaultMaxAIConcurrent     = 10
	DefaultFeedbackPageSizeMax = 100
	DefaultMaxOpenConns        = 25
	DefaultMaxIdleConns        = 5
)

// Circuit breaker defaults
const (
	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerTimeout   = 30 * time.Second
)

// Playlist defaults
const (
	// DefaultPlaylistFeedURL is the public YouTube Atom feed for a playlist id
	DefaultPlaylistFeedURL  = "https://www.youtube.com/feeds/videos.xml?playlist_id=%s"
	DefaultPlaylistCacheTTL = 10 * time.Minute
	// PlaylistFeedEntryLimit is the number of entries the public playlist feed carries at most
	PlaylistFeedEntryLimit = 15
	// PlaylistAPIPageSize is the largest page the Data API returns for playlist items
	PlaylistAPIPageSize = 50
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'none'; frame-ancestors 'none'"
)

// AI service constants
const (
	// Polling intervals
	AIShutdownPollInterval = 100 * time.Millisecond
)
