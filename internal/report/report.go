// Package report loads analysis history, computes its summary statistics,
// and paginates it for display. An Aggregator holds one loaded view at a
// time: a single analysis, the current user's history, or one link's
// history.
package report

import (
	"context"
	"errors"
	"math"

	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
)

// Mode identifies what the aggregator last loaded.
type Mode string

const (
	ModeNone   Mode = ""
	ModeByID   Mode = "by_id"
	ModeByUser Mode = "by_user"
	ModeByLink Mode = "by_link"
)

// PageSize is the number of history rows shown per page.
const PageSize = 10

// pageWindow is the maximum number of page links shown at once.
const pageWindow = 5

// ErrNothingLoaded means Reload or Delete was called before any Load.
var ErrNothingLoaded = errors.New("no report loaded")

// Backend is the slice of the API client the aggregator needs.
type Backend interface {
	Analysis(ctx context.Context, id int64) (*model.Analysis, error)
	Analyses(ctx context.Context) ([]model.Analysis, error)
	AnalysesByLink(ctx context.Context, linkID int64) ([]model.Analysis, error)
	DeleteAnalysis(ctx context.Context, id int64) error
}

// Stats summarizes a loaded history.
type Stats struct {
	Total           int
	PhishingCount   int
	SafeCount       int
	PhishingPercent int
}

// Aggregator loads and paginates analysis history.
type Aggregator struct {
	backend Backend
	logger  logging.Logger

	mode    Mode
	loadID  int64 // analysis id or link id, depending on mode
	history []model.Analysis
	current *model.Analysis
	page    int
}

// NewAggregator wires the aggregator to the backend.
func NewAggregator(backend Backend, logger logging.Logger) *Aggregator {
	return &Aggregator{
		backend: backend,
		logger:  logger.With(logging.Field{Key: "component", Value: "report"}),
		page:    1,
	}
}

// LoadByID loads exactly one analysis; the history is that single row.
func (a *Aggregator) LoadByID(ctx context.Context, id int64) error {
	analysis, err := a.backend.Analysis(ctx, id)
	if err != nil {
		return err
	}
	a.mode, a.loadID = ModeByID, id
	a.current = analysis
	a.history = []model.Analysis{*analysis}
	a.page = 1
	return nil
}

// LoadByUser loads the authenticated user's full history. The backend
// derives the user from the bearer token.
func (a *Aggregator) LoadByUser(ctx context.Context) error {
	history, err := a.backend.Analyses(ctx)
	if err != nil {
		return err
	}
	a.mode, a.loadID = ModeByUser, 0
	a.current = nil
	a.history = history
	a.page = 1
	return nil
}

// LoadByLink loads the history recorded for one link.
func (a *Aggregator) LoadByLink(ctx context.Context, linkID int64) error {
	history, err := a.backend.AnalysesByLink(ctx, linkID)
	if err != nil {
		return err
	}
	a.mode, a.loadID = ModeByLink, linkID
	a.current = nil
	a.history = history
	a.page = 1
	return nil
}

// Reload re-runs the active mode's load.
func (a *Aggregator) Reload(ctx context.Context) error {
	switch a.mode {
	case ModeByID:
		return a.LoadByID(ctx, a.loadID)
	case ModeByUser:
		return a.LoadByUser(ctx)
	case ModeByLink:
		return a.LoadByLink(ctx, a.loadID)
	default:
		return ErrNothingLoaded
	}
}

// Mode returns the active load mode.
func (a *Aggregator) Mode() Mode { return a.mode }

// Current returns the focused analysis in ModeByID, nil otherwise.
func (a *Aggregator) Current() *model.Analysis { return a.current }

// History returns the full loaded history.
func (a *Aggregator) History() []model.Analysis { return a.history }

// Stats summarizes the loaded history. A row counts as phishing when either
// the modern flag or the legacy verdict says so.
func (a *Aggregator) Stats() Stats {
	s := Stats{Total: len(a.history)}
	for _, row := range a.history {
		if row.IsPhishing || row.Verdict == model.VerdictPhishing {
			s.PhishingCount++
		}
	}
	s.SafeCount = s.Total - s.PhishingCount
	if s.Total > 0 {
		s.PhishingPercent = int(math.Round(float64(s.PhishingCount) / float64(s.Total) * 100))
	}
	return s
}

// TotalPages returns how many pages the history spans, 0 when empty.
func (a *Aggregator) TotalPages() int {
	return (len(a.history) + PageSize - 1) / PageSize
}

// Page returns the current page, always within [1, TotalPages] (1 when the
// history is empty).
func (a *Aggregator) Page() int {
	return clampPage(a.page, a.TotalPages())
}

// SetPage moves to page p, clamped to the valid range.
func (a *Aggregator) SetPage(p int) {
	a.page = clampPage(p, a.TotalPages())
}

// PageItems returns the rows of the current page.
func (a *Aggregator) PageItems() []model.Analysis {
	page := a.Page()
	start := (page - 1) * PageSize
	if start >= len(a.history) {
		return nil
	}
	end := start + PageSize
	if end > len(a.history) {
		end = len(a.history)
	}
	return a.history[start:end]
}

// PageNumbers returns the visible page links: at most five numbers centered
// on the current page and clamped to the valid range.
func (a *Aggregator) PageNumbers() []int {
	total := a.TotalPages()
	if total == 0 {
		return nil
	}

	start := a.Page() - pageWindow/2
	if start+pageWindow-1 > total {
		start = total - pageWindow + 1
	}
	if start < 1 {
		start = 1
	}

	var pages []int
	for p := start; p <= total && len(pages) < pageWindow; p++ {
		pages = append(pages, p)
	}
	return pages
}

// Delete removes one analysis after confirm approves it. A declined confirm
// makes no request. On success the active mode reloads; on failure the
// loaded history is left untouched.
func (a *Aggregator) Delete(ctx context.Context, analysis model.Analysis, confirm func(url string) bool) (bool, error) {
	if a.mode == ModeNone {
		return false, ErrNothingLoaded
	}

	url := analysis.URL
	if url == "" {
		url = "N/A"
	}
	if !confirm(url) {
		return false, nil
	}

	if err := a.backend.DeleteAnalysis(ctx, analysis.ID); err != nil {
		a.logger.Warn("analysis deletion failed",
			logging.Field{Key: "analysisId", Value: analysis.ID},
			logging.Field{Key: "error", Value: err.Error()})
		return false, err
	}

	a.logger.Info("analysis deleted",
		logging.Field{Key: "analysisId", Value: analysis.ID})

	// Reloading by id would 404 against the row that just went away.
	if a.mode == ModeByID && a.loadID == analysis.ID {
		a.mode, a.loadID = ModeNone, 0
		a.current = nil
		a.history = nil
		a.page = 1
		return true, nil
	}
	return true, a.Reload(ctx)
}

func clampPage(p, total int) int {
	if p < 1 {
		return 1
	}
	if total > 0 && p > total {
		return total
	}
	if total == 0 {
		return 1
	}
	return p
}
