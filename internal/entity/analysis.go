package entity

import (
	"encoding/json"
	"fmt"
)

// AnalysisKind tags which shape a BusinessAnalysis carries.
type AnalysisKind string

const (
	AnalysisParsed      AnalysisKind = "parsed"
	AnalysisUnparsed    AnalysisKind = "unparsed"
	AnalysisUnavailable AnalysisKind = "unavailable"
)

// ContactInfo is the optional contact block returned by the model.
type ContactInfo struct {
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// BusinessProfile is the structured answer of a successful analysis.
// Fields missing from the model output stay nil.
type BusinessProfile struct {
	Title        *string           `json:"title,omitempty"`
	BusinessType *string           `json:"businessType,omitempty"`
	Observations []string          `json:"observations,omitempty"`
	ContactInfo  *ContactInfo      `json:"contactInfo,omitempty"`
	SocialMedia  map[string]string `json:"socialMedia,omitempty"`
}

// BusinessAnalysis is a tagged variant: exactly one of Profile, RawModelOutput
// or the ErrorMessage/TruncatedSourceText pair is meaningful, selected by Kind.
type BusinessAnalysis struct {
	Kind                AnalysisKind
	Profile             *BusinessProfile
	RawModelOutput      string
	ErrorMessage        string
	TruncatedSourceText string
}

// ParsedAnalysis wraps a structured profile.
func ParsedAnalysis(p *BusinessProfile) BusinessAnalysis {
	return BusinessAnalysis{Kind: AnalysisParsed, Profile: p}
}

// UnparsedAnalysis keeps the model output verbatim.
func UnparsedAnalysis(raw string) BusinessAnalysis {
	return BusinessAnalysis{Kind: AnalysisUnparsed, RawModelOutput: raw}
}

// UnavailableAnalysis records why no model answer exists.
func UnavailableAnalysis(msg, truncated string) BusinessAnalysis {
	return BusinessAnalysis{Kind: AnalysisUnavailable, ErrorMessage: msg, TruncatedSourceText: truncated}
}

// Degraded reports whether the analysis carries no structured profile.
func (a BusinessAnalysis) Degraded() bool {
	return a.Kind != AnalysisParsed
}

type unparsedJSON struct {
	RawModelOutput string `json:"rawModelOutput"`
}

type unavailableJSON struct {
	ErrorMessage        string `json:"errorMessage"`
	TruncatedSourceText string `json:"truncatedSourceText"`
}

// MarshalJSON writes only the fields of the active shape.
func (a BusinessAnalysis) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnalysisParsed:
		if a.Profile == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(a.Profile)
	case AnalysisUnparsed:
		return json.Marshal(unparsedJSON{RawModelOutput: a.RawModelOutput})
	case AnalysisUnavailable:
		return json.Marshal(unavailableJSON{ErrorMessage: a.ErrorMessage, TruncatedSourceText: a.TruncatedSourceText})
	default:
		return nil, fmt.Errorf("marshal analysis: unknown kind %q", a.Kind)
	}
}

// UnmarshalJSON restores the variant from a stored record.
func (a *BusinessAnalysis) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, ok := fields["rawModelOutput"]; ok {
		var u unparsedJSON
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		*a = UnparsedAnalysis(u.RawModelOutput)
		return nil
	}
	if _, ok := fields["errorMessage"]; ok {
		var u unavailableJSON
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		*a = UnavailableAnalysis(u.ErrorMessage, u.TruncatedSourceText)
		return nil
	}
	var p BusinessProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = ParsedAnalysis(&p)
	return nil
}
