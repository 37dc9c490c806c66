// Package validate checks a segment timeline with plain arithmetic: timestamp
// presence, chronology, overlaps, gaps, speaker labels and the declared
// totals. It makes no external calls and holds no state between runs, so a
// Validator may be shared across goroutines.
package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/mgpai22/verbatim/internal/segment"
)

// Default thresholds, in seconds. These are tuning choices rather than
// physical limits; Thresholds carries the values actually applied.
const (
	// overlaps up to this size are treated as floating-point drift
	DefaultOverlapTolerance = 0.05
	// silence longer than this may hide an unassigned segment
	DefaultGapThreshold = 2.0
	// shorter segments are unlikely to contain speech
	DefaultMinDuration = 0.2
	// audio running this much past the last segment suggests a missing tail
	DefaultTrailingGap = 5.0
)

type Thresholds struct {
	OverlapTolerance float64 `yaml:"overlap_tolerance" json:"overlapTolerance"`
	GapThreshold     float64 `yaml:"gap_threshold" json:"gapThreshold"`
	MinDuration      float64 `yaml:"min_duration" json:"minDuration"`
	TrailingGap      float64 `yaml:"trailing_gap" json:"trailingGap"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		OverlapTolerance: DefaultOverlapTolerance,
		GapThreshold:     DefaultGapThreshold,
		MinDuration:      DefaultMinDuration,
		TrailingGap:      DefaultTrailingGap,
	}
}

func (t Thresholds) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"overlap_tolerance", t.OverlapTolerance},
		{"gap_threshold", t.GapThreshold},
		{"min_duration", t.MinDuration},
		{"trailing_gap", t.TrailingGap},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a finite number, got %v", f.name, f.value)
		}
		if f.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v", f.name, f.value)
		}
	}
	return nil
}

// inputs that come from outside the segment array
type Options struct {
	// measured length of the audio in seconds; preferred over Header.Duration
	KnownAudioDuration *float64
	Header             *segment.Header
}

type Validator struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) *Validator {
	return &Validator{thresholds: thresholds}
}

func (v *Validator) Thresholds() Thresholds {
	return v.thresholds
}

// Validate runs with DefaultThresholds.
func Validate(segments []segment.Segment, opts Options) *Report {
	return New(DefaultThresholds()).Validate(segments, opts)
}

// Validate scans segments in array order, tracking the end of the last
// segment with readable timestamps. Findings are returned, never raised.
func (v *Validator) Validate(segments []segment.Segment, opts Options) *Report {
	r := newReport(len(segments))
	t := v.thresholds

	prevEnd := 0.0
	prevIndex := 0 // 1-based index of the segment that set prevEnd, 0 for none
	speakers := make(map[string]struct{})

	for i, seg := range segments {
		index := i + 1

		if !seg.Start.Valid || !seg.End.Valid {
			r.addError(Finding{
				Code:     CodeMissingOrInvalidTimestamp,
				Message:  fmt.Sprintf("segment %d: start or end is missing or not a finite number", index),
				Segments: []int{index},
			})
			continue
		}

		start, end := seg.Start.Value, seg.End.Value
		duration := end - start

		if start >= end {
			r.addError(Finding{
				Code: CodeInvalidDuration,
				Message: fmt.Sprintf(
					"segment %d: start %s is not before end %s",
					index, formatSeconds(start), formatSeconds(end),
				),
				Segments:  []int{index},
				Magnitude: duration,
			})
		}

		if duration > 0 && duration < t.MinDuration {
			r.addWarning(Finding{
				Code: CodeUnrealisticDuration,
				Message: fmt.Sprintf(
					"segment %d: lasts %s, too short to plausibly contain speech",
					index, formatSeconds(duration),
				),
				Segments:  []int{index},
				Magnitude: duration,
			})
		}

		if overlap := prevEnd - start; start < prevEnd && overlap > t.OverlapTolerance {
			r.addError(overlapFinding(prevIndex, index, overlap))
		}

		if gap := start - prevEnd; gap > t.GapThreshold {
			r.addWarning(gapFinding(prevIndex, index, gap))
		}

		speaker := seg.Speaker.Trimmed()
		if speaker == "" {
			r.addError(Finding{
				Code:     CodeMissingSpeakerLabel,
				Message:  fmt.Sprintf("segment %d: speaker label is missing or empty", index),
				Segments: []int{index},
			})
		} else {
			speakers[speaker] = struct{}{}
		}

		prevEnd = end
		prevIndex = index
	}

	r.Stats.Speakers = sortedKeys(speakers)
	r.Stats.UniqueSpeakerCount = len(speakers)
	r.Stats.DerivedDuration = prevEnd

	v.checkTotals(r, opts, prevEnd, prevIndex)

	r.IsValid = len(r.Errors) == 0
	return r
}

func (v *Validator) checkTotals(r *Report, opts Options, lastEnd float64, lastIndex int) {
	header := opts.Header

	if header != nil && header.NumSpeakers != nil &&
		*header.NumSpeakers != r.Stats.UniqueSpeakerCount {
		r.addError(Finding{
			Code: CodeSpeakerCountMismatch,
			Message: fmt.Sprintf(
				"header declares %d speakers but %d distinct labels appear",
				*header.NumSpeakers, r.Stats.UniqueSpeakerCount,
			),
		})
	}

	declared := opts.KnownAudioDuration
	if declared == nil && header != nil {
		declared = header.Duration
	}
	if declared != nil {
		d := *declared
		r.Stats.DeclaredDuration = &d

		if tail := d - lastEnd; tail > v.thresholds.TrailingGap {
			finding := Finding{
				Code: CodeTrailingMissingSegment,
				Message: fmt.Sprintf(
					"timeline ends at %s but the audio runs to %s (%s uncovered)",
					formatSeconds(lastEnd), formatSeconds(d), formatSeconds(tail),
				),
				Magnitude: tail,
			}
			if lastIndex > 0 {
				finding.Segments = []int{lastIndex}
			}
			r.addWarning(finding)
		}
	}

	if (header == nil || header.NumSpeakers == nil) && r.Stats.UniqueSpeakerCount < 2 {
		r.addWarning(Finding{
			Code: CodeLowSpeakerCardinality,
			Message: fmt.Sprintf(
				"only %d distinct speaker label(s); confirm the recording has a single voice",
				r.Stats.UniqueSpeakerCount,
			),
		})
	}
}

// with no earlier timed segment the overlap is with the start of the audio
func overlapFinding(prevIndex, index int, overlap float64) Finding {
	if prevIndex == 0 {
		return Finding{
			Code:      CodeTimestampOverlap,
			Message:   fmt.Sprintf("segment %d starts %s before 0", index, formatSeconds(overlap)),
			Segments:  []int{index},
			Magnitude: overlap,
		}
	}
	return Finding{
		Code: CodeTimestampOverlap,
		Message: fmt.Sprintf(
			"segments %d and %d overlap by %s",
			prevIndex, index, formatSeconds(overlap),
		),
		Segments:  []int{prevIndex, index},
		Magnitude: overlap,
	}
}

func gapFinding(prevIndex, index int, gap float64) Finding {
	if prevIndex == 0 {
		return Finding{
			Code: CodePossibleMissingSegment,
			Message: fmt.Sprintf(
				"%s of silence before segment %d may hide unassigned speech",
				formatSeconds(gap), index,
			),
			Segments:  []int{index},
			Magnitude: gap,
		}
	}
	return Finding{
		Code: CodePossibleMissingSegment,
		Message: fmt.Sprintf(
			"%s gap between segments %d and %d may hide unassigned speech",
			formatSeconds(gap), prevIndex, index,
		),
		Segments:  []int{prevIndex, index},
		Magnitude: gap,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3fs", s)
}
