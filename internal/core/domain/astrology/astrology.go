package astrology

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// OperationKind is the closed set of reading kinds served by the backend.
type OperationKind string

const (
	KindChart  OperationKind = "chart"
	KindDasha  OperationKind = "dasha"
	KindYearly OperationKind = "yearly"
)

// Kinds lists every OperationKind. Tables keyed by kind are checked against it.
func Kinds() []OperationKind {
	return []OperationKind{KindChart, KindDasha, KindYearly}
}

func (k OperationKind) String() string {
	return string(k)
}

func (k OperationKind) IsValid() bool {
	switch k {
	case KindChart, KindDasha, KindYearly:
		return true
	}
	return false
}

// OperationTag names a cacheable operation. It prefixes every fingerprint.
type OperationTag string

const (
	TagChart         OperationTag = "chart"
	TagDasha         OperationTag = "dasha"
	TagYearly        OperationTag = "yearly"
	TagExplainChart  OperationTag = "explain-chart"
	TagExplainDasha  OperationTag = "explain-dasha"
	TagExplainYearly OperationTag = "explain-yearly"
)

// DataTag returns the tag for fetching raw data of the given kind.
func DataTag(k OperationKind) OperationTag {
	return OperationTag(k)
}

// ExplainTag returns the tag for explaining data of the given kind.
func ExplainTag(k OperationKind) OperationTag {
	return OperationTag("explain-" + string(k))
}

// AyanamsaLahiri selects the Lahiri reference frame at the provider.
const AyanamsaLahiri = 1

// Language selects the language of generated text.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage maps a client supplied code to a Language. Anything other than
// Hindi falls back to English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageHindi)) {
		return LanguageHindi
	}
	return LanguageEnglish
}

// DisplayName is the language name used inside prompts.
func (l Language) DisplayName() string {
	if l == LanguageHindi {
		return "Hindi"
	}
	return "English"
}

// Coordinate is a latitude or longitude in decimal degrees. Clients send it
// either as a JSON number or as a numeric string.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*c = Coordinate(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &ValidationError{Message: "invalid coordinate " + strconv.Quote(s)}
	}
	*c = Coordinate(f)
	return nil
}

// Present reports whether c holds a finite value. Blank strings decode to NaN
// and count as absent, as do "NaN" and "Inf".
func (c *Coordinate) Present() bool {
	if c == nil {
		return false
	}
	f := float64(*c)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String formats the coordinate with the shortest exact representation so the
// same value always yields the same text.
func (c Coordinate) String() string {
	return strconv.FormatFloat(float64(c), 'f', -1, 64)
}

// BirthDetails is the input shared by chart, dasha and yearly requests.
type BirthDetails struct {
	DOB       string      `json:"dob"`
	Time      string      `json:"time"`
	Latitude  *Coordinate `json:"latitude"`
	Longitude *Coordinate `json:"longitude"`
	Timezone  string      `json:"timezone"`
}

// AstrologyRequest is a data lookup for one birth. Language only matters for
// yearly forecasts.
type AstrologyRequest struct {
	BirthDetails
	Language Language `json:"language,omitempty"`
}

// Validate reports a ValidationError when any birth detail is missing.
func (r *AstrologyRequest) Validate() error {
	if r == nil {
		return ErrMissingBirthDetails
	}
	if strings.TrimSpace(r.DOB) == "" ||
		strings.TrimSpace(r.Time) == "" ||
		!r.Latitude.Present() ||
		!r.Longitude.Present() ||
		strings.TrimSpace(r.Timezone) == "" {
		return ErrMissingBirthDetails
	}
	return nil
}

// Datetime composes the ISO-8601 instant sent upstream, e.g.
// 2001-04-23T12:53:00+05:30. Times given without seconds get ":00".
func (r *AstrologyRequest) Datetime() string {
	t := strings.TrimSpace(r.Time)
	if strings.Count(t, ":") == 1 {
		t += ":00"
	}
	return strings.TrimSpace(r.DOB) + "T" + t + normalizeOffset(r.Timezone)
}

// Coordinates composes "lat,lng".
func (r *AstrologyRequest) Coordinates() string {
	return r.Latitude.String() + "," + r.Longitude.String()
}

// normalizeOffset accepts "+05:30", "05:30", "+0530" and "Z".
func normalizeOffset(tz string) string {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "Z" || tz == "z" {
		return "Z"
	}
	if tz[0] != '+' && tz[0] != '-' {
		tz = "+" + tz
	}
	if len(tz) == 5 && !strings.Contains(tz, ":") {
		tz = tz[:3] + ":" + tz[3:]
	}
	return tz
}

// ExplanationRequest asks for a natural-language reading of astrology data.
type ExplanationRequest struct {
	Kind     OperationKind   `json:"-"`
	Data     json.RawMessage `json:"data"`
	Language Language        `json:"language"`
}

func (r *ExplanationRequest) Validate() error {
	if r == nil || !r.Kind.IsValid() {
		return &ValidationError{Message: "Unsupported explanation type"}
	}
	d := strings.TrimSpace(string(r.Data))
	if d == "" || d == "null" {
		return ErrMissingExplanationData
	}
	if !json.Valid(r.Data) {
		return ErrMissingExplanationData
	}
	return nil
}

// Explanation is the generated text for one ExplanationRequest. Degraded marks a
// placeholder returned when the model produced no text.
type Explanation struct {
	Text     string `json:"explanation"`
	Degraded bool   `json:"-"`
}
