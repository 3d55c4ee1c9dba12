// Package demoserver is a development stand-in for the real detection
// backend: the REST surface the client expects, persisted in SQLite, with a
// lexical detector behind /phishing/analyze. Seeded with throwaway accounts;
// never meant to face the internet.
package demoserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/urlutil"
)

type contextKey string

const userIDKey contextKey = "usuarioId"

// Server is the demo backend's HTTP surface.
type Server struct {
	cfg      *Config
	store    *Store
	detector *Detector
	router   chi.Router
	logger   logging.Logger
}

// NewServer opens the store, wires the detector and builds the routes.
func NewServer(cfg *Config, logger logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		detector: NewDetector(cfg.ProbeContent, logger),
		router:   chi.NewRouter(),
		logger:   logger.With(logging.Field{Key: "component", Value: "demoserver"}),
	}
	s.routes()
	return s, nil
}

// Close releases the store.
func (s *Server) Close() error { return s.store.Close() }

// Store exposes the backing store for seeding in demos and tests.
func (s *Server) Store() *Store { return s.store }

// ServeHTTP implements http.Handler, logging every request with an id.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()
	w.Header().Set("X-Request-Id", reqID)
	s.logger.Info("http_request",
		logging.Field{Key: "requestId", Value: reqID},
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path})
	s.router.ServeHTTP(w, r)
}

// HTTPServer returns an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) routes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:4200", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/registro", s.handleRegister)

		api.Group(func(protected chi.Router) {
			protected.Use(s.bearerMiddleware)

			protected.Post("/enlaces", s.handleCreateLink)
			protected.Get("/enlaces", s.handleListLinks)
			protected.Get("/enlaces/usuario/{id}", s.handleLinksByUser)
			protected.Delete("/enlaces/{id}", s.handleDeleteLink)

			protected.Post("/phishing/analyze", s.handleAnalyze)

			protected.Post("/analisis", s.handleCreateAnalysis)
			protected.Get("/analisis", s.handleListAnalyses)
			protected.Get("/analisis/{id}", s.handleGetAnalysis)
			protected.Delete("/analisis/{id}", s.handleDeleteAnalysis)
			protected.Get("/analisis/enlace/{id}", s.handleAnalysesByLink)
			protected.Get("/analisis/usuario/{id}", s.handleAnalysesByUser)

			protected.Get("/estadisticas", s.handleStatistics)
		})
	})
}

// bearerMiddleware validates the token and attaches the user id.
func (s *Server) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		claims, err := parseToken([]byte(s.cfg.JWTSecret), strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		userID, ok := claimUserID(claims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func currentUser(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// ─── Auth ──────────────────────────────────────────────────────────────

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := s.store.UserByUsername(r.Context(), body.Username)
	if err != nil || user.Password != body.Password {
		writeError(w, http.StatusUnauthorized, "credenciales inválidas")
		return
	}

	token, err := issueToken([]byte(s.cfg.JWTSecret), s.cfg.TokenTTL, user)
	if err != nil {
		s.logger.Error("signing token", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.logger.Info("login", logging.Field{Key: "username", Value: user.Username})
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"usuarioId": user.ID,
		"username":  user.Username,
		"role":      user.Role,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body model.User
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(body.Username) == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username y password son obligatorios")
		return
	}

	id, err := s.store.CreateUser(r.Context(), storedUser{
		Username:  body.Username,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err == ErrUserExists {
		writeError(w, http.StatusConflict, "el nombre de usuario ya está registrado")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("user registered", logging.Field{Key: "username", Value: body.Username})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "username": body.Username})
}

// ─── Links ─────────────────────────────────────────────────────────────

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var link model.Link
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(link.URL) == "" {
		writeError(w, http.StatusBadRequest, "url es obligatoria")
		return
	}
	if link.UserID == 0 {
		link.UserID = currentUser(r)
	}

	created, err := s.store.CreateLink(r.Context(), link)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.store.LinksByUser(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleLinksByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	links, err := s.store.LinksByUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	switch err := s.store.DeleteLink(r.Context(), id); err {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case ErrLinkNotFound:
		writeError(w, http.StatusNotFound, "enlace no encontrado")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ─── Analysis ──────────────────────────────────────────────────────────

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "url es obligatoria")
		return
	}

	analysis, err := s.detector.Analyze(r.Context(), body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "url inválida")
		return
	}

	userID := currentUser(r)
	analysis.UserID = userID

	// Tie the analysis to the caller's most recent link for this URL, the
	// record the client created one step earlier. URLs are compared in
	// canonical form so trailing slashes or IDN spellings still match.
	application := ""
	if links, err := s.store.LinksByUser(r.Context(), userID); err == nil {
		target := canonicalURL(body.URL)
		for _, link := range links {
			if canonicalURL(link.URL) == target {
				analysis.LinkID = link.ID
				application = link.Application
				break
			}
		}
	}

	if _, err := s.store.CreateAnalysis(r.Context(), analysis, application); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("url analyzed",
		logging.Field{Key: "url", Value: body.URL},
		logging.Field{Key: "phishing", Value: analysis.IsPhishing},
		logging.Field{Key: "probability", Value: analysis.Probability})

	writeJSON(w, http.StatusOK, model.Detection{
		IsPhishing:  analysis.IsPhishing,
		Probability: analysis.Probability,
		Message:     analysis.Message,
		Confidence:  analysis.Confidence,
		LinkID:      analysis.LinkID,
		URL:         analysis.URL,
	})
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LinkID     int64   `json:"enlaceId"`
		Verdict    string  `json:"resultado"`
		Confidence float64 `json:"confianza"`
		Details    string  `json:"detalles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	analysis := &model.Analysis{
		LinkID:      body.LinkID,
		UserID:      currentUser(r),
		Verdict:     body.Verdict,
		IsPhishing:  strings.EqualFold(body.Verdict, model.VerdictPhishing),
		Probability: body.Confidence,
		Details:     body.Details,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if link, err := s.store.LinkByID(r.Context(), body.LinkID); err == nil {
		analysis.URL = link.URL
	}

	created, err := s.store.CreateAnalysis(r.Context(), analysis, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.AnalysesByUser(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	analysis, err := s.store.AnalysisByID(r.Context(), id)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, analysis)
	case ErrAnalysisNotFound:
		writeError(w, http.StatusNotFound, "análisis no encontrado")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	switch err := s.store.DeleteAnalysis(r.Context(), id); err {
	case nil:
		w.WriteHeader(http.StatusNoContent)
	case ErrAnalysisNotFound:
		writeError(w, http.StatusNotFound, "análisis no encontrado")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleAnalysesByLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	analyses, err := s.store.AnalysesByLink(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleAnalysesByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	analyses, err := s.store.AnalysesByUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, analyses)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ─── Helpers ───────────────────────────────────────────────────────────

// canonicalURL falls back to the raw string when canonicalization fails, so
// an odd-but-stored URL still matches itself.
func canonicalURL(raw string) string {
	canonical, err := urlutil.Canonicalize(raw, urlutil.CanonicalizeOptions{
		StripTrailingSlash: true,
		DefaultScheme:      "https",
	})
	if err != nil {
		return raw
	}
	return canonical
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
