package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// keys probed, in order, when the root is an object
var arrayKeys = []string{"segments", "transcription_segments"}

// ParseError reports text that is not valid JSON.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf(
			"invalid JSON at line %d, column %d: %v",
			e.Line,
			e.Column,
			e.Err,
		)
	}
	return fmt.Sprintf("invalid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StructureError reports valid JSON that does not hold a usable segment array.
type StructureError struct {
	Reason string
	Err    error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized segment structure: %s: %v", e.Reason, e.Err)
	}
	return "unrecognized segment structure: " + e.Reason
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// Parse turns JSON text into segments. The root may be a bare array, or an
// object holding the array under "segments" or "transcription_segments".
func Parse(text string) (*Document, error) {
	return ParseBytes([]byte(text))
}

func ParseBytes(data []byte) (*Document, error) {
	var root json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, newParseError(data, err)
	}

	root = bytes.TrimSpace(root)
	switch root[0] {
	case '[':
		segments, err := decodeSegments(root)
		if err != nil {
			return nil, err
		}
		return &Document{Segments: segments}, nil
	case '{':
		return parseObject(root)
	default:
		return nil, &StructureError{
			Reason: "root must be an array or an object",
		}
	}
}

func parseObject(root json.RawMessage) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(root, &fields); err != nil {
		return nil, &StructureError{Reason: "malformed object root", Err: err}
	}

	for _, key := range arrayKeys {
		raw, ok := fields[key]
		if !ok || !isArray(raw) {
			continue
		}
		segments, err := decodeSegments(raw)
		if err != nil {
			return nil, err
		}
		return &Document{
			Segments: segments,
			Header:   parseHeader(fields),
		}, nil
	}

	return nil, &StructureError{
		Reason: fmt.Sprintf(
			"object root has no %q or %q array",
			arrayKeys[0],
			arrayKeys[1],
		),
	}
}

func decodeSegments(raw json.RawMessage) ([]Segment, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &StructureError{Reason: "malformed segment array", Err: err}
	}
	if len(elems) == 0 {
		return nil, &StructureError{Reason: "segment array is empty"}
	}

	segments := make([]Segment, len(elems))
	for i, elem := range elems {
		if !isObject(elem) {
			return nil, &StructureError{
				Reason: fmt.Sprintf("segment %d is not an object", i+1),
			}
		}
		if err := json.Unmarshal(elem, &segments[i]); err != nil {
			return nil, &StructureError{
				Reason: fmt.Sprintf("segment %d could not be decoded", i+1),
				Err:    err,
			}
		}
	}
	return segments, nil
}

// header fields that are absent or malformed are treated as undeclared
func parseHeader(fields map[string]json.RawMessage) *Header {
	var header Header
	declared := false

	if raw, ok := fields["num_speakers"]; ok {
		if v, ok := parseNumber(raw); ok && v == float64(int(v)) && validSpeakerCount(int(v)) {
			n := int(v)
			header.NumSpeakers = &n
			declared = true
		}
	}
	if raw, ok := fields["duration"]; ok {
		if v, ok := parseNumber(raw); ok && validDuration(v) {
			header.Duration = &v
			declared = true
		}
	}

	if !declared {
		return nil
	}
	return &header
}

// ParseModelOutput parses segments out of a language model reply. Replies
// often wrap the JSON in markdown fences or surround it with prose, so every
// '[' or '{' is tried as a candidate root until one parses.
func ParseModelOutput(text string) (*Document, error) {
	doc, err := Parse(text)
	if err == nil {
		return doc, nil
	}
	firstErr := err

	var structErr *StructureError
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			continue
		}
		doc, err := ParseBytes(raw)
		if err == nil {
			return doc, nil
		}
		var se *StructureError
		if structErr == nil && errors.As(err, &se) {
			structErr = se
		}
	}

	if structErr != nil {
		return nil, structErr
	}
	return nil, firstErr
}

// Marshal serializes a document. Documents without a declared header field
// become a bare array, so an empty Header parses back as nil; otherwise the
// header fields sit next to a "segments" array. Header values that Parse
// would ignore are rejected.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	h := doc.Header
	if h == nil || (h.NumSpeakers == nil && h.Duration == nil) {
		return json.MarshalIndent(doc.Segments, "", "  ")
	}
	if h.NumSpeakers != nil && !validSpeakerCount(*h.NumSpeakers) {
		return nil, fmt.Errorf("num_speakers must not be negative, got %d", *h.NumSpeakers)
	}
	if h.Duration != nil && !validDuration(*h.Duration) {
		return nil, fmt.Errorf("duration must be a finite non-negative number, got %v", *h.Duration)
	}

	out := struct {
		NumSpeakers *int      `json:"num_speakers,omitempty"`
		Duration    *float64  `json:"duration,omitempty"`
		Segments    []Segment `json:"segments"`
	}{
		NumSpeakers: doc.Header.NumSpeakers,
		Duration:    doc.Header.Duration,
		Segments:    doc.Segments,
	}
	return json.MarshalIndent(out, "", "  ")
}

func validSpeakerCount(n int) bool { return n >= 0 }

func validDuration(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func newParseError(data []byte, err error) *ParseError {
	pe := &ParseError{Err: err}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && len(bytes.TrimSpace(data)) > 0 {
		pe.Line, pe.Column = position(data, syntaxErr.Offset)
	}
	return pe
}

// 1-based line and column of a byte offset
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line := bytes.Count(prefix, []byte("\n")) + 1
	column := len(prefix) - bytes.LastIndexByte(prefix, '\n')
	return line, column
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
