package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmoralesv/enlace/internal/api"
	"github.com/jmoralesv/enlace/internal/interfaces"
	"github.com/jmoralesv/enlace/internal/model"
)

type fakeBackend struct {
	createLink     func(model.Link) (*model.Link, error)
	analyze        func(string) (*model.Detection, error)
	createAnalysis func(api.AnalysisDTO) (*model.Analysis, error)

	linkCalls    int
	analyzeCalls int
}

func (f *fakeBackend) CreateLink(ctx context.Context, link model.Link) (*model.Link, error) {
	f.linkCalls++
	if f.createLink != nil {
		return f.createLink(link)
	}
	link.ID = 10
	return &link, nil
}

func (f *fakeBackend) Analyze(ctx context.Context, url string) (*model.Detection, error) {
	f.analyzeCalls++
	if f.analyze != nil {
		return f.analyze(url)
	}
	return &model.Detection{IsPhishing: false, Probability: 0.1}, nil
}

func (f *fakeBackend) CreateAnalysis(ctx context.Context, dto api.AnalysisDTO) (*model.Analysis, error) {
	if f.createAnalysis != nil {
		return f.createAnalysis(dto)
	}
	return &model.Analysis{ID: 77, LinkID: dto.LinkID}, nil
}

type fakeUser struct {
	id int64
}

func (f fakeUser) UserID() (int64, bool) { return f.id, f.id != 0 }

func newOrchestrator(backend Backend, user UserSource, cfg *Config) *Orchestrator {
	return NewOrchestrator(cfg, backend, user, interfaces.NewTestLogger(false))
}

// ─── Happy path ────────────────────────────────────────────────────────

func TestSubmit_PhishingVerdict(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(url string) (*model.Detection, error) {
			return &model.Detection{IsPhishing: true, Probability: 0.87, Message: "suspicious redirect"}, nil
		},
	}
	o := newOrchestrator(backend, fakeUser{id: 7}, nil)

	res, err := o.Submit(context.Background(), "example.com/login", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if res.URL != "https://example.com/login" {
		t.Errorf("URL = %q, want scheme prepended", res.URL)
	}
	if res.LinkID != 10 || res.AnalysisID != 10 {
		t.Errorf("ids = link %d analysis %d, want 10/10", res.LinkID, res.AnalysisID)
	}
	if !res.IsPhishing || res.RiskPercent != 87 || res.RiskLevel != 5 {
		t.Errorf("risk = %d%% level %d phishing %v, want 87%%/5/true", res.RiskPercent, res.RiskLevel, res.IsPhishing)
	}
	if len(res.Details) != 4 || len(res.Recommendations) != 5 {
		t.Errorf("templates = %d details %d recommendations, want 4/5", len(res.Details), len(res.Recommendations))
	}
	if res.Message != "suspicious redirect" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestSubmit_RiskLevels(t *testing.T) {
	tests := []struct {
		probability float64
		wantPercent int
		wantLevel   int
	}{
		{0.0, 0, 1},
		{0.19, 19, 1},
		{0.20, 20, 2},
		{0.55, 55, 3},
		{0.60, 60, 4},
		{0.804, 80, 5},
	}
	for _, tt := range tests {
		backend := &fakeBackend{
			analyze: func(string) (*model.Detection, error) {
				return &model.Detection{Probability: tt.probability}, nil
			},
		}
		o := newOrchestrator(backend, fakeUser{id: 1}, nil)
		res, err := o.Submit(context.Background(), "https://example.com", "")
		if err != nil {
			t.Fatalf("Submit(%v): %v", tt.probability, err)
		}
		if res.RiskPercent != tt.wantPercent || res.RiskLevel != tt.wantLevel {
			t.Errorf("p=%v: percent %d level %d, want %d/%d",
				tt.probability, res.RiskPercent, res.RiskLevel, tt.wantPercent, tt.wantLevel)
		}
	}
}

func TestSubmit_SafeVerdictTemplates(t *testing.T) {
	o := newOrchestrator(&fakeBackend{}, fakeUser{id: 1}, nil)
	res, err := o.Submit(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.IsPhishing {
		t.Fatal("expected safe verdict")
	}
	if res.Details[0] != "URL verificada correctamente" {
		t.Errorf("details = %v, want safe set", res.Details)
	}
	if len(res.Recommendations) != 4 {
		t.Errorf("recommendations = %d, want 4", len(res.Recommendations))
	}
}

// ─── Validation and auth ───────────────────────────────────────────────

func TestSubmit_InvalidURLSkipsNetwork(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(backend, fakeUser{id: 1}, nil)

	for _, raw := range []string{"", "   ", "https://"} {
		_, err := o.Submit(context.Background(), raw, "")
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Submit(%q) err = %v, want ValidationError", raw, err)
		}
	}
	if backend.linkCalls != 0 || backend.analyzeCalls != 0 {
		t.Errorf("backend reached on invalid input: %d link, %d analyze", backend.linkCalls, backend.analyzeCalls)
	}
}

func TestSubmit_AnonymousPreservesInput(t *testing.T) {
	backend := &fakeBackend{}
	o := newOrchestrator(backend, fakeUser{}, nil)

	_, err := o.Submit(context.Background(), "example.com", "")
	var aErr *AuthRequiredError
	if !errors.As(err, &aErr) {
		t.Fatalf("err = %v, want AuthRequiredError", err)
	}
	if aErr.URL != "example.com" || aErr.ReturnTo == "" {
		t.Errorf("auth error = %+v, want original input and return path", aErr)
	}
	if backend.linkCalls != 0 {
		t.Error("link must not be saved for anonymous users")
	}
}

// ─── Failure handling ──────────────────────────────────────────────────

func TestSubmit_LinkWithoutIDFails(t *testing.T) {
	backend := &fakeBackend{
		createLink: func(link model.Link) (*model.Link, error) { return &link, nil }, // no id assigned
	}
	o := newOrchestrator(backend, fakeUser{id: 1}, nil)

	_, err := o.Submit(context.Background(), "https://example.com", "")
	var sErr *SubmitError
	if !errors.As(err, &sErr) || sErr.Stage != StateSavingLink {
		t.Fatalf("err = %v, want SubmitError at saving_link", err)
	}
	if backend.analyzeCalls != 0 {
		t.Error("analysis must not run without a link id")
	}
}

func TestSubmit_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "backend message wins",
			err:  &api.Error{Status: 500, Message: "detector offline"},
			want: "detector offline",
		},
		{
			name: "transport error next",
			err:  &api.Error{Status: 0, Err: errors.New("dial tcp: connection refused")},
			want: "dial tcp: connection refused",
		},
		{
			name: "fixed fallback last",
			err:  &api.Error{Status: 502},
			want: "the analysis service did not respond",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{
				analyze: func(string) (*model.Detection, error) { return nil, tt.err },
			}
			o := newOrchestrator(backend, fakeUser{id: 1}, nil)

			_, err := o.Submit(context.Background(), "https://example.com", "")
			var sErr *SubmitError
			if !errors.As(err, &sErr) {
				t.Fatalf("err = %v, want SubmitError", err)
			}
			if sErr.Message != tt.want {
				t.Errorf("message = %q, want %q", sErr.Message, tt.want)
			}
		})
	}
}

func TestSubmit_UnreachableIsFlagged(t *testing.T) {
	backend := &fakeBackend{
		createLink: func(model.Link) (*model.Link, error) {
			return nil, &api.Error{Status: 0, Err: errors.New("refused")}
		},
	}
	o := newOrchestrator(backend, fakeUser{id: 1}, nil)

	_, err := o.Submit(context.Background(), "https://example.com", "")
	var sErr *SubmitError
	if !errors.As(err, &sErr) || !sErr.Unreachable() {
		t.Errorf("err = %v, want unreachable SubmitError", err)
	}
}

// ─── Legacy save path ──────────────────────────────────────────────────

func TestSubmit_LegacySaveFailureStillShowsResult(t *testing.T) {
	backend := &fakeBackend{
		createAnalysis: func(api.AnalysisDTO) (*model.Analysis, error) {
			return nil, &api.Error{Status: 500, Message: "persistence down"}
		},
	}
	cfg := DefaultConfig()
	cfg.SaveAnalysisResult = true
	o := newOrchestrator(backend, fakeUser{id: 1}, cfg)

	res, err := o.Submit(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v, legacy save failures must not surface", err)
	}
	if res.AnalysisID != res.LinkID {
		t.Errorf("AnalysisID = %d, want link id fallback %d", res.AnalysisID, res.LinkID)
	}
}

func TestSubmit_LegacySaveSuccessOverridesAnalysisID(t *testing.T) {
	var got api.AnalysisDTO
	backend := &fakeBackend{
		analyze: func(string) (*model.Detection, error) {
			return &model.Detection{IsPhishing: true, Probability: 0.9}, nil
		},
		createAnalysis: func(dto api.AnalysisDTO) (*model.Analysis, error) {
			got = dto
			return &model.Analysis{ID: 300, LinkID: dto.LinkID}, nil
		},
	}
	cfg := DefaultConfig()
	cfg.SaveAnalysisResult = true
	o := newOrchestrator(backend, fakeUser{id: 1}, cfg)

	res, err := o.Submit(context.Background(), "https://example.com", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.AnalysisID != 300 {
		t.Errorf("AnalysisID = %d, want 300 from legacy save", res.AnalysisID)
	}
	if got.Verdict != model.VerdictPhishing || got.Confidence != 0.9 || got.Details != "Sin detalles adicionales" {
		t.Errorf("legacy DTO = %+v", got)
	}
}

// ─── Busy guard and states ─────────────────────────────────────────────

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var enteredOnce sync.Once
	backend := &fakeBackend{
		analyze: func(string) (*model.Detection, error) {
			enteredOnce.Do(func() { close(entered) })
			<-release
			return &model.Detection{}, nil
		},
	}
	o := newOrchestrator(backend, fakeUser{id: 1}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), "https://example.com", "")
		done <- err
	}()

	<-entered
	if _, err := o.Submit(context.Background(), "https://other.example", ""); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Submit err = %v, want ErrBusy", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	// Reusable once idle again.
	if _, err := o.Submit(context.Background(), "https://example.com", ""); err != nil {
		t.Errorf("Submit after completion: %v", err)
	}
}

func TestSubmit_StateTransitions(t *testing.T) {
	o := newOrchestrator(&fakeBackend{}, fakeUser{id: 1}, nil)
	var seen []State
	o.StateHook = func(s State) { seen = append(seen, s) }

	if _, err := o.Submit(context.Background(), "https://example.com", ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []State{StateValidating, StateSavingLink, StateAnalyzing, StateDone, StateIdle}
	if len(seen) != len(want) {
		t.Fatalf("states = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("states = %v, want %v", seen, want)
		}
	}
	if o.State() != StateIdle {
		t.Errorf("final state = %s, want idle", o.State())
	}
}
