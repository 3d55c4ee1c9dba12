package demoserver

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmoralesv/enlace/internal/logging"
	"github.com/jmoralesv/enlace/internal/model"
)

// analysisVersion tags every record the detector produces.
const analysisVersion = "demo-1.2"

// suspiciousKeywords are the tokens the lexical pass scores. Lowercase.
var suspiciousKeywords = []string{
	"login", "signin", "verify", "account", "secure", "update",
	"confirm", "password", "bank", "wallet", "webscr", "recover",
}

// Detector scores URLs with a lexical feature pass and, optionally, a page
// content probe. It is a development stand-in for the real detection
// service, not a serious classifier.
type Detector struct {
	probeContent bool
	http         *http.Client
	logger       logging.Logger
}

// NewDetector builds a detector. When probeContent is true the page is
// fetched and inspected for login forms, which raises the score.
func NewDetector(probeContent bool, logger logging.Logger) *Detector {
	return &Detector{
		probeContent: probeContent,
		http:         &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With(logging.Field{Key: "component", Value: "detector"}),
	}
}

// Analyze extracts the feature bag for rawURL and scores it.
func (d *Detector) Analyze(ctx context.Context, rawURL string) (*model.Analysis, error) {
	started := time.Now()

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	a := extractFeatures(rawURL, u)

	score := lexicalScore(a)
	if d.probeContent {
		if d.hasLoginForm(ctx, rawURL) {
			score += 0.20
			a.Message = "page contains a credential form"
		}
	}
	if score > 1 {
		score = 1
	}

	a.Probability = score
	a.IsPhishing = score >= 0.5
	if a.IsPhishing {
		a.Verdict = model.VerdictPhishing
		a.Label = 1
	} else {
		a.Verdict = model.VerdictSafe
	}
	a.Confidence = confidenceBucket(score)
	a.Timestamp = time.Now().UTC().Format(time.RFC3339)
	a.APIResponseTime = float64(time.Since(started).Milliseconds())
	a.AnalysisVersion = analysisVersion
	return a, nil
}

func extractFeatures(rawURL string, u *url.URL) *model.Analysis {
	host := u.Hostname()
	labels := strings.Split(host, ".")
	subdomains := len(labels) - 2
	if subdomains < 0 {
		subdomains = 0
	}

	var digitsURL, digitsDomain, special int
	var lastDigit rune
	repeated := false
	for _, r := range rawURL {
		switch {
		case r >= '0' && r <= '9':
			digitsURL++
			if r == lastDigit {
				repeated = true
			}
			lastDigit = r
		case strings.ContainsRune("-_@%?=&~#", r):
			special++
		default:
			lastDigit = 0
		}
	}
	for _, r := range host {
		if r >= '0' && r <= '9' {
			digitsDomain++
		}
	}

	var found []string
	lower := strings.ToLower(rawURL)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}

	return &model.Analysis{
		URL:                    rawURL,
		URLLength:              len(rawURL),
		Domain:                 host,
		DomainLength:           len(host),
		PathLength:             len(u.Path),
		Protocol:               u.Scheme,
		HasHTTPS:               u.Scheme == "https",
		HasQuery:               u.RawQuery != "",
		SubdomainCount:         subdomains,
		DotsInDomain:           strings.Count(host, "."),
		HyphensInDomain:        strings.Count(host, "-"),
		SpecialCharCount:       special,
		DigitsInURL:            digitsURL,
		DigitsInDomain:         digitsDomain,
		HasRepeatedDigits:      repeated,
		SuspiciousKeywordCount: len(found),
		SuspiciousKeywords:     strings.Join(found, ","),
	}
}

// lexicalScore weighs the feature bag into a 0..1 probability.
func lexicalScore(a *model.Analysis) float64 {
	score := 0.0
	if !a.HasHTTPS {
		score += 0.25
	}
	if a.DigitsInDomain > 0 {
		score += 0.10
	}
	if a.SubdomainCount > 2 {
		score += 0.15
	}
	if a.HyphensInDomain > 1 {
		score += 0.10
	}
	if a.SpecialCharCount > 3 {
		score += 0.10
	}
	if a.URLLength > 75 {
		score += 0.10
	}
	if a.HasRepeatedDigits {
		score += 0.05
	}

	kw := float64(a.SuspiciousKeywordCount) * 0.15
	if kw > 0.45 {
		kw = 0.45
	}
	return score + kw
}

func confidenceBucket(score float64) string {
	switch {
	case score >= 0.8 || score <= 0.2:
		return "high"
	case score >= 0.6 || score <= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// hasLoginForm fetches the page and looks for credential inputs. Any fetch
// or parse failure just means no signal.
func (d *Detector) hasLoginForm(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := d.http.Do(req)
	if err != nil {
		d.logger.Debug("content probe failed",
			logging.Field{Key: "url", Value: rawURL},
			logging.Field{Key: "error", Value: err.Error()})
		return false
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false
	}
	return doc.Find(`input[type="password"]`).Length() > 0
}
