package agent

import (
	"github.com/mgpai22/verbatim/internal/validate"
)

// how a claim stands against the deterministic report
type Verdict string

const (
	// the validator reported the same problem on overlapping segments
	VerdictCorroborated Verdict = "corroborated"
	// a timing claim the validator found no evidence for
	VerdictDisputed Verdict = "disputed"
	// acoustic claims the timestamps alone cannot confirm or refute
	VerdictUnverifiable Verdict = "unverifiable"
)

// a problem proposed by the listening model
type Claim struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Segments []int  `json:"segments"`
	Detail   string `json:"detail"`
	Severity string `json:"severity,omitempty"`

	Upheld     bool    `json:"upheld"`
	ReviewNote string  `json:"reviewNote,omitempty"`
	Verdict    Verdict `json:"verdict,omitempty"`
}

// codes the validator can decide from timestamps and labels alone
var checkable = map[validate.Code]bool{
	validate.CodeMissingOrInvalidTimestamp: true,
	validate.CodeInvalidDuration:           true,
	validate.CodeUnrealisticDuration:       true,
	validate.CodeTimestampOverlap:          true,
	validate.CodePossibleMissingSegment:    true,
	validate.CodeMissingSpeakerLabel:       true,
	validate.CodeSpeakerCountMismatch:      true,
	validate.CodeTrailingMissingSegment:    true,
	validate.CodeLowSpeakerCardinality:     true,
}

// Reconcile sets the verdict of every claim against report and returns the
// claims. Claims using a code the validator checks are corroborated when a
// finding with that code shares a segment index (or either side names no
// segments), disputed otherwise. Any other code is unverifiable.
func Reconcile(report *validate.Report, claims []Claim) []Claim {
	for i := range claims {
		c := &claims[i]
		code := validate.Code(c.Code)
		if !checkable[code] {
			c.Verdict = VerdictUnverifiable
			continue
		}

		c.Verdict = VerdictDisputed
		if report == nil {
			continue
		}
		for _, f := range report.Findings(code) {
			if overlaps(c.Segments, f.Segments) {
				c.Verdict = VerdictCorroborated
				break
			}
		}
	}
	return claims
}

func overlaps(a, b []int) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	seen := make(map[int]bool, len(a))
	for _, i := range a {
		seen[i] = true
	}
	for _, i := range b {
		if seen[i] {
			return true
		}
	}
	return false
}

// Summary counts claims by verdict, only those upheld by review.
func Summary(claims []Claim) map[Verdict]int {
	out := make(map[Verdict]int)
	for _, c := range claims {
		if c.Upheld {
			out[c.Verdict]++
		}
	}
	return out
}
