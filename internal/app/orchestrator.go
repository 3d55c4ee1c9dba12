// Package app drives the URL submission flow: validate, save the link,
// request the phishing analysis, and shape the outcome for display. It owns
// the state machine the UI layers observe and is the only place that talks
// to more than one backend endpoint in sequence.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoralesv/enlace/internal/api"
	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
	"github.com/jmoralesv/enlace/internal/urlutil"
)

// State is the phase a submission is in.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSavingLink State = "saving_link"
	StateAnalyzing  State = "analyzing"
	StateDone       State = "done"
)

// ErrBusy rejects a submission while another one is in flight.
var ErrBusy = errors.New("an analysis is already in progress")

// ValidationError means the URL was rejected before any network call.
type ValidationError struct {
	Input string
	Err   error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid url %q: %v", e.Input, e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

// AuthRequiredError means no user id is persisted. It keeps the submitted
// URL so the caller can restore it after the login round trip.
type AuthRequiredError struct {
	URL      string
	ReturnTo string
}

func (e *AuthRequiredError) Error() string {
	return "sign in required to save and analyze links"
}

// SubmitError is a submission failure after validation. Message follows the
// display priority: backend payload message, then transport error, then a
// fixed fallback per stage.
type SubmitError struct {
	Stage   State
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }
func (e *SubmitError) Unwrap() error { return e.Err }

// Unreachable reports whether the failure was connection-level, for the
// connectivity hint in the dialog layer.
func (e *SubmitError) Unreachable() bool {
	var apiErr *api.Error
	return errors.As(e.Err, &apiErr) && apiErr.Unreachable()
}

// Result is a completed submission ready for display and export.
type Result struct {
	URL             string
	LinkID          int64
	AnalysisID      int64
	IsPhishing      bool
	Probability     float64
	RiskPercent     int
	RiskLevel       int
	Message         string
	Details         []string
	Recommendations []string
}

// Backend is the slice of the API client the orchestrator needs.
type Backend interface {
	CreateLink(ctx context.Context, link model.Link) (*model.Link, error)
	Analyze(ctx context.Context, url string) (*model.Detection, error)
	CreateAnalysis(ctx context.Context, dto api.AnalysisDTO) (*model.Analysis, error)
}

// UserSource yields the persisted user id, false when logged out.
// *session.Store satisfies it.
type UserSource interface {
	UserID() (int64, bool)
}

// Orchestrator runs one submission at a time through the state machine.
type Orchestrator struct {
	cfg     *Config
	backend Backend
	users   UserSource
	logger  logging.Logger

	// StateHook, when set, observes every transition. Used by the CLI
	// progress line and by tests; calls are serialized by the busy guard.
	StateHook func(State)

	mu    sync.Mutex
	busy  bool
	state State
}

// NewOrchestrator ties together config, backend, session and logger.
func NewOrchestrator(cfg *Config, backend Backend, users UserSource, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		cfg:     cfg,
		backend: backend,
		users:   users,
		logger:  logger.With(logging.Field{Key: "component", Value: "app"}),
		state:   StateIdle,
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	if o.StateHook != nil {
		o.StateHook(s)
	}
}

// Submit runs the full flow for one URL. Exactly one submission may be in
// flight; a concurrent call returns ErrBusy immediately. Whatever the
// outcome, the orchestrator is idle and reusable when Submit returns.
func (o *Orchestrator) Submit(ctx context.Context, rawURL, message string) (*Result, error) {
	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.busy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
		o.setState(StateIdle)
	}()

	res, err := o.submit(ctx, rawURL, message)
	o.setState(StateDone)
	return res, err
}

func (o *Orchestrator) submit(ctx context.Context, rawURL, message string) (*Result, error) {
	o.setState(StateValidating)
	normalized, err := urlutil.Normalize(rawURL)
	if err != nil {
		return nil, &ValidationError{Input: rawURL, Err: err}
	}

	userID, ok := o.users.UserID()
	if !ok {
		return nil, &AuthRequiredError{URL: rawURL, ReturnTo: "home"}
	}

	o.setState(StateSavingLink)
	if message == "" {
		message = o.cfg.DefaultMessage
	}
	link, err := withTimeout(ctx, o.cfg.RequestTimeout, func(ctx context.Context) (*model.Link, error) {
		return o.backend.CreateLink(ctx, model.Link{
			URL:         normalized,
			Application: o.cfg.Application,
			Message:     message,
			UserID:      userID,
		})
	})
	if err != nil {
		return nil, o.submitError(StateSavingLink, err, "could not reach the backend to save the link")
	}
	if link.ID == 0 {
		return nil, &SubmitError{Stage: StateSavingLink, Message: "the link was saved but came back without an id"}
	}

	o.setState(StateAnalyzing)
	detection, err := withTimeout(ctx, o.cfg.RequestTimeout, func(ctx context.Context) (*model.Detection, error) {
		return o.backend.Analyze(ctx, normalized)
	})
	if err != nil {
		return nil, o.submitError(StateAnalyzing, err, "the analysis service did not respond")
	}

	// The backend records the analysis during /phishing/analyze; the link id
	// doubles as the report reference unless the legacy save returns its own.
	analysisID := link.ID
	if o.cfg.SaveAnalysisResult {
		if id, ok := o.saveAnalysisResult(ctx, link.ID, detection); ok {
			analysisID = id
		}
	}

	details, recommendations := verdictTemplates(detection.IsPhishing)
	return &Result{
		URL:             normalized,
		LinkID:          link.ID,
		AnalysisID:      analysisID,
		IsPhishing:      detection.IsPhishing,
		Probability:     detection.Probability,
		RiskPercent:     model.RiskPercent(detection.Probability),
		RiskLevel:       model.RiskLevel(detection.Probability),
		Message:         detection.Message,
		Details:         details,
		Recommendations: recommendations,
	}, nil
}

// saveAnalysisResult re-posts the outcome through the legacy endpoint. Best
// effort: a failure is logged and the result is still shown.
func (o *Orchestrator) saveAnalysisResult(ctx context.Context, linkID int64, det *model.Detection) (int64, bool) {
	verdict := model.VerdictSafe
	if det.IsPhishing {
		verdict = model.VerdictPhishing
	}
	details := det.Message
	if details == "" {
		details = "Sin detalles adicionales"
	}

	analysis, err := withTimeout(ctx, o.cfg.RequestTimeout, func(ctx context.Context) (*model.Analysis, error) {
		return o.backend.CreateAnalysis(ctx, api.AnalysisDTO{
			LinkID:     linkID,
			Verdict:    verdict,
			Confidence: det.Probability,
			Details:    details,
		})
	})
	if err != nil {
		o.logger.Warn("legacy analysis save failed, showing result anyway",
			logging.Field{Key: "linkId", Value: linkID},
			logging.Field{Key: "error", Value: err.Error()})
		return 0, false
	}
	return analysis.ID, true
}

// withTimeout bounds one backend call. A generic helper keeps every stage on
// the same deadline policy.
func withTimeout[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return call(ctx)
}

func (o *Orchestrator) submitError(stage State, err error, fallback string) *SubmitError {
	msg := api.MessageOf(err)
	if msg == "" {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Err != nil {
			msg = apiErr.Err.Error()
		}
	}
	if msg == "" {
		msg = fallback
	}

	o.logger.Warn("submission failed",
		logging.Field{Key: "stage", Value: string(stage)},
		logging.Field{Key: "error", Value: err.Error()})

	return &SubmitError{Stage: stage, Message: msg, Err: err}
}
