package report

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jmoralesv/enlace/internal/interfaces"
	"github.com/jmoralesv/enlace/internal/model"
)

type fakeBackend struct {
	analyses    []model.Analysis
	byLink      map[int64][]model.Analysis
	deleteErr   error
	deleted     []int64
	listCalls   int
	byLinkCalls int
}

func (f *fakeBackend) Analysis(ctx context.Context, id int64) (*model.Analysis, error) {
	for _, a := range f.analyses {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeBackend) Analyses(ctx context.Context) ([]model.Analysis, error) {
	f.listCalls++
	return f.analyses, nil
}

func (f *fakeBackend) AnalysesByLink(ctx context.Context, linkID int64) ([]model.Analysis, error) {
	f.byLinkCalls++
	return f.byLink[linkID], nil
}

func (f *fakeBackend) DeleteAnalysis(ctx context.Context, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := make([]model.Analysis, 0, len(f.analyses))
	for _, a := range f.analyses {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.analyses = kept
	return nil
}

func history(n int) []model.Analysis {
	out := make([]model.Analysis, n)
	for i := range out {
		out[i] = model.Analysis{ID: int64(i + 1), URL: fmt.Sprintf("https://site%d.example", i+1)}
	}
	return out
}

func newAggregator(backend Backend) *Aggregator {
	return NewAggregator(backend, interfaces.NewTestLogger(false))
}

// ─── Modes ─────────────────────────────────────────────────────────────

func TestLoadByID_HistoryIsSingleRow(t *testing.T) {
	backend := &fakeBackend{analyses: history(3)}
	agg := newAggregator(backend)

	if err := agg.LoadByID(context.Background(), 2); err != nil {
		t.Fatalf("LoadByID: %v", err)
	}
	if agg.Mode() != ModeByID {
		t.Errorf("mode = %s", agg.Mode())
	}
	if agg.Current() == nil || agg.Current().ID != 2 {
		t.Errorf("current = %+v, want id 2", agg.Current())
	}
	if len(agg.History()) != 1 {
		t.Errorf("history rows = %d, want 1", len(agg.History()))
	}
}

func TestLoadByLink_FiltersToLink(t *testing.T) {
	backend := &fakeBackend{byLink: map[int64][]model.Analysis{
		9: {{ID: 1, LinkID: 9}, {ID: 2, LinkID: 9}},
	}}
	agg := newAggregator(backend)

	if err := agg.LoadByLink(context.Background(), 9); err != nil {
		t.Fatalf("LoadByLink: %v", err)
	}
	if agg.Mode() != ModeByLink || len(agg.History()) != 2 {
		t.Errorf("mode %s rows %d, want by_link/2", agg.Mode(), len(agg.History()))
	}
	if agg.Current() != nil {
		t.Error("current must be nil outside ModeByID")
	}
}

func TestReload_WithoutLoadFails(t *testing.T) {
	agg := newAggregator(&fakeBackend{})
	if err := agg.Reload(context.Background()); !errors.Is(err, ErrNothingLoaded) {
		t.Errorf("err = %v, want ErrNothingLoaded", err)
	}
}

// ─── Stats ─────────────────────────────────────────────────────────────

func TestStats_CountsBothVerdictShapes(t *testing.T) {
	backend := &fakeBackend{analyses: []model.Analysis{
		{ID: 1, IsPhishing: true},
		{ID: 2, Verdict: model.VerdictPhishing}, // legacy rows may lack the flag
		{ID: 3, Verdict: model.VerdictSafe},
		{ID: 4},
	}}
	agg := newAggregator(backend)
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := agg.Stats()
	if s.Total != 4 || s.PhishingCount != 2 || s.SafeCount != 2 {
		t.Errorf("stats = %+v, want 4 total, 2 phishing, 2 safe", s)
	}
	if s.PhishingPercent != 50 {
		t.Errorf("percent = %d, want 50", s.PhishingPercent)
	}
}

func TestStats_EmptyHistoryIsAllZero(t *testing.T) {
	agg := newAggregator(&fakeBackend{})
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s := agg.Stats(); s != (Stats{}) {
		t.Errorf("stats = %+v, want zero values", s)
	}
}

func TestStats_PercentRounds(t *testing.T) {
	backend := &fakeBackend{analyses: []model.Analysis{
		{ID: 1, IsPhishing: true}, {ID: 2}, {ID: 3},
	}}
	agg := newAggregator(backend)
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := agg.Stats().PhishingPercent; got != 33 {
		t.Errorf("percent = %d, want 33", got)
	}
}

// ─── Pagination ────────────────────────────────────────────────────────

func TestPagination_TwentyThreeRows(t *testing.T) {
	agg := newAggregator(&fakeBackend{analyses: history(23)})
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}

	if agg.TotalPages() != 3 {
		t.Fatalf("TotalPages = %d, want 3", agg.TotalPages())
	}
	if got := len(agg.PageItems()); got != 10 {
		t.Errorf("page 1 rows = %d, want 10", got)
	}

	agg.SetPage(3)
	if got := len(agg.PageItems()); got != 3 {
		t.Errorf("page 3 rows = %d, want 3", got)
	}
	if agg.PageItems()[0].ID != 21 {
		t.Errorf("page 3 starts at id %d, want 21", agg.PageItems()[0].ID)
	}
}

func TestPagination_PageClamped(t *testing.T) {
	agg := newAggregator(&fakeBackend{analyses: history(23)})
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}

	agg.SetPage(99)
	if agg.Page() != 3 {
		t.Errorf("page = %d, want clamp to 3", agg.Page())
	}
	agg.SetPage(-5)
	if agg.Page() != 1 {
		t.Errorf("page = %d, want clamp to 1", agg.Page())
	}
}

func TestPageNumbers_Window(t *testing.T) {
	tests := []struct {
		rows int
		page int
		want []int
	}{
		{rows: 0, page: 1, want: nil},
		{rows: 23, page: 1, want: []int{1, 2, 3}},
		{rows: 95, page: 1, want: []int{1, 2, 3, 4, 5}},
		{rows: 95, page: 5, want: []int{3, 4, 5, 6, 7}},
		{rows: 95, page: 10, want: []int{6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		agg := newAggregator(&fakeBackend{analyses: history(tt.rows)})
		if err := agg.LoadByUser(context.Background()); err != nil {
			t.Fatal(err)
		}
		agg.SetPage(tt.page)

		got := agg.PageNumbers()
		if len(got) != len(tt.want) {
			t.Errorf("rows=%d page=%d: numbers = %v, want %v", tt.rows, tt.page, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("rows=%d page=%d: numbers = %v, want %v", tt.rows, tt.page, got, tt.want)
				break
			}
		}
	}
}

// ─── Deletion ──────────────────────────────────────────────────────────

func TestDelete_DeclinedMakesNoRequest(t *testing.T) {
	backend := &fakeBackend{analyses: history(3)}
	agg := newAggregator(backend)
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}

	deleted, err := agg.Delete(context.Background(), agg.History()[0], func(string) bool { return false })
	if err != nil || deleted {
		t.Errorf("Delete = %v, %v; want false, nil", deleted, err)
	}
	if len(backend.deleted) != 0 {
		t.Error("declined confirm must not reach the backend")
	}
}

func TestDelete_SuccessReloadsActiveMode(t *testing.T) {
	backend := &fakeBackend{analyses: history(3)}
	agg := newAggregator(backend)
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}
	loadsBefore := backend.listCalls

	var askedURL string
	deleted, err := agg.Delete(context.Background(), agg.History()[1], func(url string) bool {
		askedURL = url
		return true
	})
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v; want true, nil", deleted, err)
	}
	if askedURL != "https://site2.example" {
		t.Errorf("confirm url = %q", askedURL)
	}
	if backend.listCalls != loadsBefore+1 {
		t.Error("active mode must reload after deletion")
	}
	if len(agg.History()) != 2 {
		t.Errorf("history rows = %d, want 2 after reload", len(agg.History()))
	}
}

func TestDelete_LoadedByIDRowClearsInsteadOfReloading(t *testing.T) {
	backend := &fakeBackend{analyses: history(3)}
	agg := newAggregator(backend)
	if err := agg.LoadByID(context.Background(), 2); err != nil {
		t.Fatal(err)
	}

	deleted, err := agg.Delete(context.Background(), *agg.Current(), func(string) bool { return true })
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v; want true, nil", deleted, err)
	}
	if agg.Mode() != ModeNone || agg.Current() != nil || len(agg.History()) != 0 {
		t.Errorf("mode=%s current=%v rows=%d, want cleared view", agg.Mode(), agg.Current(), len(agg.History()))
	}
}

func TestDelete_FailureLeavesHistoryUntouched(t *testing.T) {
	backend := &fakeBackend{analyses: history(3), deleteErr: errors.New("boom")}
	agg := newAggregator(backend)
	if err := agg.LoadByUser(context.Background()); err != nil {
		t.Fatal(err)
	}

	deleted, err := agg.Delete(context.Background(), agg.History()[0], func(string) bool { return true })
	if deleted || err == nil {
		t.Fatalf("Delete = %v, %v; want false, error", deleted, err)
	}
	if len(agg.History()) != 3 {
		t.Errorf("history rows = %d, want unchanged 3", len(agg.History()))
	}
}
