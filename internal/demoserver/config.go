package demoserver

import "time"

// Config holds the demo backend's runtime options.
type Config struct {
	// ListenAddr is where the HTTP server binds.
	ListenAddr string

	// DBPath is the SQLite file, ":memory:" for throwaway state.
	DBPath string

	// JWTSecret signs the issued tokens.
	JWTSecret string

	// TokenTTL bounds issued token lifetime.
	TokenTTL time.Duration

	// ProbeContent enables the detector's page fetch.
	ProbeContent bool
}

// DefaultConfig returns development defaults matching the client's.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: ":8080",
		DBPath:     "enlace-demo.db",
		JWTSecret:  "demo-secret-do-not-deploy",
		TokenTTL:   24 * time.Hour,
	}
}
