package segment

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// one unit of a transcription timeline
type Segment struct {
	Start         Seconds `json:"start"`
	End           Seconds `json:"end"`
	Speaker       Label   `json:"speaker"`
	Transcription string  `json:"transcription"`
}

// optional totals declared next to the segment array
type Header struct {
	NumSpeakers *int     `json:"num_speakers,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
}

// parsed segment document
type Document struct {
	Segments []Segment
	Header   *Header
}

// Seconds is a timestamp read from loosely typed JSON. Numbers and numeric
// strings are accepted; anything else leaves Valid false instead of failing
// the decode, so the validator can report the segment by index.
type Seconds struct {
	Value float64
	Valid bool
}

// valid timestamp at v seconds
func At(v float64) Seconds {
	return Seconds{Value: v, Valid: true}
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	*s = Seconds{}
	if v, ok := parseNumber(data); ok {
		*s = At(v)
	}
	return nil
}

// Label is a speaker identifier. Non-string JSON values decode as empty.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	*l = ""
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(s)
	}
	return nil
}

// label with surrounding whitespace removed
func (l Label) Trimmed() string {
	return strings.TrimSpace(string(l))
}

// builds a segment with valid timestamps
func New(start, end float64, speaker, transcription string) Segment {
	return Segment{
		Start:         At(start),
		End:           At(end),
		Speaker:       Label(speaker),
		Transcription: transcription,
	}
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var raw struct {
		Start         Seconds `json:"start"`
		End           Seconds `json:"end"`
		Speaker       Label   `json:"speaker"`
		Transcription *Label  `json:"transcription"`
		Text          *Label  `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Segment{
		Start:   raw.Start,
		End:     raw.End,
		Speaker: raw.Speaker,
	}
	switch {
	case raw.Transcription != nil:
		s.Transcription = string(*raw.Transcription)
	case raw.Text != nil:
		s.Transcription = string(*raw.Text)
	}
	return nil
}

// parseNumber reads a finite float from a JSON number or numeric string.
func parseNumber(raw []byte) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
