package validate

// finding identifier
type Code string

const (
	CodeMissingOrInvalidTimestamp Code = "MissingOrInvalidTimestamp"
	CodeInvalidDuration           Code = "InvalidDuration"
	CodeUnrealisticDuration       Code = "UnrealisticDuration"
	CodeTimestampOverlap          Code = "TimestampOverlap"
	CodePossibleMissingSegment    Code = "PossibleMissingSegment"
	CodeMissingSpeakerLabel       Code = "MissingSpeakerLabel"
	CodeSpeakerCountMismatch      Code = "SpeakerCountMismatch"
	CodeTrailingMissingSegment    Code = "TrailingMissingSegment"
	CodeLowSpeakerCardinality     Code = "LowSpeakerCardinality"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Finding struct {
	Code     Code     `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// 1-based segment indices the finding refers to
	Segments []int `json:"segments,omitempty"`
	// seconds of overlap, gap or duration, when one applies
	Magnitude float64 `json:"magnitude,omitempty"`
}

type Stats struct {
	Speakers           []string `json:"speakers"`
	UniqueSpeakerCount int      `json:"uniqueSpeakerCount"`
	SegmentCount       int      `json:"segmentCount"`
	// end of the last segment with readable timestamps
	DerivedDuration  float64  `json:"derivedDuration"`
	DeclaredDuration *float64 `json:"declaredDuration,omitempty"`
}

// result of one validation pass; warnings never affect IsValid
type Report struct {
	IsValid  bool      `json:"isValid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Stats    Stats     `json:"stats"`
}

func newReport(segmentCount int) *Report {
	return &Report{
		Errors:   []Finding{},
		Warnings: []Finding{},
		Stats: Stats{
			Speakers:     []string{},
			SegmentCount: segmentCount,
		},
	}
}

func (r *Report) addError(f Finding) {
	f.Severity = SeverityError
	r.Errors = append(r.Errors, f)
}

func (r *Report) addWarning(f Finding) {
	f.Severity = SeverityWarning
	r.Warnings = append(r.Warnings, f)
}

// findings with the given code, errors first
func (r *Report) Findings(code Code) []Finding {
	var out []Finding
	for _, f := range r.Errors {
		if f.Code == code {
			out = append(out, f)
		}
	}
	for _, f := range r.Warnings {
		if f.Code == code {
			out = append(out, f)
		}
	}
	return out
}

func (r *Report) Has(code Code) bool {
	return len(r.Findings(code)) > 0
}
