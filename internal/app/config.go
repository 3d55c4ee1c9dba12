package app

import "time"

// Config holds the runtime options of the submission flow.
type Config struct {
	// Application tags every saved link ("web", "mobile", ...).
	Application string

	// DefaultMessage is attached to links submitted without a note.
	DefaultMessage string

	// RequestTimeout bounds each backend call made during a submission.
	RequestTimeout time.Duration

	// SaveAnalysisResult re-posts the analysis outcome through the legacy
	// /analisis endpoint. The backend already persists the analysis during
	// /phishing/analyze, so this is off by default; a failure on this path
	// never hides the result.
	SaveAnalysisResult bool
}

// DefaultConfig returns the defaults the web client shipped with.
func DefaultConfig() *Config {
	return &Config{
		Application:    "web",
		DefaultMessage: "Análisis desde página principal",
		RequestTimeout: 30 * time.Second,
	}
}
