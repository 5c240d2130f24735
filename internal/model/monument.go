package model

import (
	"encoding/json"
	"time"
)

// Monument represents one heritage site as stored in the monuments table
type Monument struct {
	ID                string          `json:"id"`                           // Opaque row identifier
	Name              string          `json:"name"`                         // Display name
	Slug              string          `json:"slug"`                         // URL segment for the detail page
	Location          *string         `json:"location"`                     // City / state, free text
	Type              *string         `json:"type"`                         // e.g. "Temple", "Fort"
	BuildYear         *int            `json:"build_year"`                   // Construction year (CE), nil if unknown
	Period            *string         `json:"period"`                       // Explicit era label, overrides year inference
	CoverImage        *string         `json:"cover_image"`                  // Hero image URL
	HistoricalDetails *string         `json:"historical_details"`           // Long-form history
	About             *string         `json:"about"`                        // Short description
	QuickFacts        json.RawMessage `json:"quick_facts,omitempty"`        // Array, object or scalar
	AudioURL          *string         `json:"audio_url"`                    // Legacy single narration track
	ModelGLBURL       *string         `json:"model_glb_url"`                // 3D model (glTF binary)
	ModelUSDZURL      *string         `json:"model_usdz_url"`               // 3D model for iOS AR Quick Look
	Published         bool            `json:"published"`                    // Only published rows are listed
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// HasYear reports whether the construction year is known. A stored 0 is
// a placeholder and counts as unknown.
func (m Monument) HasYear() bool {
	return m.BuildYear != nil && *m.BuildYear != 0
}

// YearOrZero returns the construction year, or 0 when unknown
func (m Monument) YearOrZero() int {
	if m.BuildYear == nil {
		return 0
	}
	return *m.BuildYear
}

// HasModel reports whether a 3D model is attached
func (m Monument) HasModel() bool {
	return deref(m.ModelGLBURL) != "" || deref(m.ModelUSDZURL) != ""
}

// Str returns the value of an optional string field, or "" when nil.
// Templates use it to print nullable columns.
func Str(s *string) string {
	return deref(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IntPtr and StringPtr build optional fields in tests and fixtures.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }
