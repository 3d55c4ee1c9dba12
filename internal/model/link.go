package model

// Link is a submitted URL record, owned by a user and analyzed zero or more
// times. Created once per analysis request, never mutated; the id is assigned
// by the backend.
type Link struct {
	ID          int64  `json:"id"`
	URL         string `json:"url"`
	Application string `json:"aplicacion,omitempty"`
	Message     string `json:"mensaje,omitempty"`
	UserID      int64  `json:"usuarioId,omitempty"`
	CreatedAt   string `json:"fechaCreacion,omitempty"`
}

// Detection is the response of POST /phishing/analyze.
type Detection struct {
	IsPhishing  bool    `json:"isPhishing"`
	Probability float64 `json:"probabilityPhishing"`
	Message     string  `json:"message,omitempty"`
	Confidence  string  `json:"confidence,omitempty"`
	LinkID      int64   `json:"enlaceId,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// User is the registration payload for /auth/registro.
type User struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}
