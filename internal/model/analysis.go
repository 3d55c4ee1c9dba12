package model

import (
	"encoding/json"
	"math"
	"strings"
)

// Verdict values carried by the legacy "resultado" field.
const (
	VerdictPhishing = "PHISHING"
	VerdictSafe     = "SEGURO"
)

// Analysis is the canonical record of one phishing-detection result.
//
// The backend historically served the same record under two field-name
// schemes (urlEnlace vs enlaceUrl, confianza vs probabilityPhishing,
// urllength vs urlLength, resultado vs isPhishing). UnmarshalJSON folds both
// into this one shape so nothing downstream branches on alias presence.
type Analysis struct {
	ID     int64 `json:"id"`
	LinkID int64 `json:"enlaceId"`
	UserID int64 `json:"usuarioId,omitempty"`

	URL         string  `json:"urlEnlace,omitempty"`
	IsPhishing  bool    `json:"isPhishing"`
	Probability float64 `json:"probabilityPhishing"`
	Verdict     string  `json:"resultado,omitempty"`

	Confidence     string `json:"confidence,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Message        string `json:"message,omitempty"`
	Details        string `json:"detalles,omitempty"`
	Label          int    `json:"label,omitempty"`

	// Lexical feature bag computed by the detector.
	URLLength              int    `json:"urlLength,omitempty"`
	Domain                 string `json:"domain,omitempty"`
	DomainLength           int    `json:"domainLength,omitempty"`
	PathLength             int    `json:"pathLength,omitempty"`
	Protocol               string `json:"protocol,omitempty"`
	HasHTTPS               bool   `json:"hasHttps,omitempty"`
	HasQuery               bool   `json:"hasQuery,omitempty"`
	SubdomainCount         int    `json:"numberOfSubdomains,omitempty"`
	DotsInDomain           int    `json:"dotsInDomain,omitempty"`
	HyphensInDomain        int    `json:"hyphensInDomain,omitempty"`
	SpecialCharCount       int    `json:"specialCharactersCount,omitempty"`
	DigitsInURL            int    `json:"digitsInUrl,omitempty"`
	DigitsInDomain         int    `json:"digitsInDomain,omitempty"`
	HasRepeatedDigits      bool   `json:"hasRepeatedDigits,omitempty"`
	SuspiciousKeywordCount int    `json:"suspiciousKeywordsCount,omitempty"`
	SuspiciousKeywords     string `json:"suspiciousKeywords,omitempty"`

	Timestamp       string  `json:"analysisTimestamp,omitempty"`
	APIResponseTime float64 `json:"apiResponseTime,omitempty"`
	AnalysisVersion string  `json:"analysisVersion,omitempty"`
}

// analysisWire mirrors Analysis plus every legacy alias the backend has ever
// emitted. Pointers distinguish "absent" from zero so priority rules work.
type analysisWire struct {
	ID     int64 `json:"id"`
	LinkID int64 `json:"enlaceId"`
	UserID int64 `json:"usuarioId"`

	URLEnlace *string `json:"urlEnlace"`
	EnlaceURL *string `json:"enlaceUrl"`

	IsPhishing  *bool    `json:"isPhishing"`
	Probability *float64 `json:"probabilityPhishing"`
	Confianza   *float64 `json:"confianza"`
	Verdict     string   `json:"resultado"`

	Confidence     string `json:"confidence"`
	Recommendation string `json:"recommendation"`
	Message        string `json:"message"`
	Details        string `json:"detalles"`
	Label          int    `json:"label"`

	URLLength       *int   `json:"urlLength"`
	URLLengthLegacy *int   `json:"urllength"`
	Domain          string `json:"domain"`
	DomainLength    int    `json:"domainLength"`
	PathLength      int    `json:"pathLength"`
	Protocol        string `json:"protocol"`
	HasHTTPS        bool   `json:"hasHttps"`
	HasQuery        bool   `json:"hasQuery"`
	SubdomainCount  int    `json:"numberOfSubdomains"`
	DotsInDomain    int    `json:"dotsInDomain"`
	HyphensInDomain int    `json:"hyphensInDomain"`
	SpecialChars    int    `json:"specialCharactersCount"`
	DigitsInURL     int    `json:"digitsInUrl"`
	DigitsInDomain  int    `json:"digitsInDomain"`
	RepeatedDigits  bool   `json:"hasRepeatedDigits"`
	SuspiciousCount int    `json:"suspiciousKeywordsCount"`
	SuspiciousList  string `json:"suspiciousKeywords"`

	Timestamp       string  `json:"analysisTimestamp"`
	Fecha           string  `json:"fecha"`
	APIResponseTime float64 `json:"apiResponseTime"`
	AnalysisVersion string  `json:"analysisVersion"`
}

// UnmarshalJSON accepts either backend payload shape.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	var w analysisWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*a = Analysis{
		ID:     w.ID,
		LinkID: w.LinkID,
		UserID: w.UserID,

		Verdict:        w.Verdict,
		Confidence:     w.Confidence,
		Recommendation: w.Recommendation,
		Message:        w.Message,
		Details:        w.Details,
		Label:          w.Label,

		Domain:                 w.Domain,
		DomainLength:           w.DomainLength,
		PathLength:             w.PathLength,
		Protocol:               w.Protocol,
		HasHTTPS:               w.HasHTTPS,
		HasQuery:               w.HasQuery,
		SubdomainCount:         w.SubdomainCount,
		DotsInDomain:           w.DotsInDomain,
		HyphensInDomain:        w.HyphensInDomain,
		SpecialCharCount:       w.SpecialChars,
		DigitsInURL:            w.DigitsInURL,
		DigitsInDomain:         w.DigitsInDomain,
		HasRepeatedDigits:      w.RepeatedDigits,
		SuspiciousKeywordCount: w.SuspiciousCount,
		SuspiciousKeywords:     w.SuspiciousList,

		APIResponseTime: w.APIResponseTime,
		AnalysisVersion: w.AnalysisVersion,
	}

	switch {
	case w.URLEnlace != nil:
		a.URL = *w.URLEnlace
	case w.EnlaceURL != nil:
		a.URL = *w.EnlaceURL
	}

	switch {
	case w.Probability != nil:
		a.Probability = *w.Probability
	case w.Confianza != nil:
		a.Probability = *w.Confianza
	}

	if w.IsPhishing != nil {
		a.IsPhishing = *w.IsPhishing
	} else {
		a.IsPhishing = strings.EqualFold(w.Verdict, VerdictPhishing)
	}
	if a.Verdict == "" {
		if a.IsPhishing {
			a.Verdict = VerdictPhishing
		} else {
			a.Verdict = VerdictSafe
		}
	}

	switch {
	case w.URLLength != nil:
		a.URLLength = *w.URLLength
	case w.URLLengthLegacy != nil:
		a.URLLength = *w.URLLengthLegacy
	}

	if w.Timestamp != "" {
		a.Timestamp = w.Timestamp
	} else {
		a.Timestamp = w.Fecha
	}

	return nil
}

// RiskPercent is the display percentage for a phishing probability.
func RiskPercent(probability float64) int {
	return int(math.Round(probability * 100))
}

// RiskLevel buckets a probability into the 1..5 display scale.
func RiskLevel(probability float64) int {
	pct := RiskPercent(probability)
	switch {
	case pct >= 80:
		return 5
	case pct >= 60:
		return 4
	case pct >= 40:
		return 3
	case pct >= 20:
		return 2
	default:
		return 1
	}
}
