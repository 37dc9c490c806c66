package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mgpai22/verbatim/internal/segment"
)

// hh is optional so short WebVTT cues (mm:ss.mmm) match too
var cueTiming = regexp.MustCompile(
	`(?:(\d+):)?(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(?:(\d+):)?(\d{2}):(\d{2})[,.](\d{3})`,
)

var (
	voiceTag   = regexp.MustCompile(`^<v(?:\.[^ >]*)?\s+([^>]+)>`)
	speakerTag = regexp.MustCompile(`^([^:\n]{1,40}):\s+`)
	markupTag  = regexp.MustCompile(`</?[a-z][^>]*>`)
)

// Read parses an SRT or WebVTT file.
func Read(path string) (*Subtitle, error) {
	format := GetFormatFromExtension(path)
	if format == FormatASS {
		return nil, fmt.Errorf("reading ASS files is not supported: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer file.Close()

	sub, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sub.Format = format
	return sub, nil
}

// Parse reads cues from SRT or WebVTT text. Numeric cue identifiers, the
// WEBVTT header and NOTE/STYLE blocks are skipped.
func Parse(r io.Reader) (*Subtitle, error) {
	scanner := bufio.NewScanner(r)

	var (
		entries []Entry
		current *Entry
		lines   []string
		lineNum int
		skip    bool
	)

	flush := func() {
		if current != nil && len(lines) > 0 {
			current.Text = strings.Join(lines, "\n")
			current.Speaker, current.Text = splitSpeaker(current.Text)
			entries = append(entries, *current)
		}
		current = nil
		lines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flush()
			skip = false
			continue
		}
		if skip {
			continue
		}
		if current == nil && (strings.HasPrefix(trimmed, "WEBVTT") ||
			strings.HasPrefix(trimmed, "NOTE") ||
			strings.HasPrefix(trimmed, "STYLE")) {
			skip = true
			continue
		}

		if m := cueTiming.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseTimestamp(m[1], m[2], m[3], m[4])
			if err != nil {
				return nil, fmt.Errorf("invalid start timestamp at line %d: %w", lineNum, err)
			}
			end, err := parseTimestamp(m[5], m[6], m[7], m[8])
			if err != nil {
				return nil, fmt.Errorf("invalid end timestamp at line %d: %w", lineNum, err)
			}
			current = &Entry{Index: len(entries) + 1, StartTime: start, EndTime: end}
			continue
		}

		// cue identifiers before the timing line
		if current == nil {
			continue
		}
		lines = append(lines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitles: %w", err)
	}
	return &Subtitle{Entries: entries}, nil
}

func parseTimestamp(hours, minutes, secs, millis string) (time.Duration, error) {
	h := 0
	if hours != "" {
		var err error
		if h, err = strconv.Atoi(hours); err != nil {
			return 0, err
		}
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(secs)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}
	if m > 59 || s > 59 {
		return 0, fmt.Errorf("%s:%s out of range", minutes, secs)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// splitSpeaker pulls a speaker out of a WebVTT voice span or a leading
// "Name: " prefix.
func splitSpeaker(text string) (string, string) {
	if m := voiceTag.FindStringSubmatch(text); m != nil {
		rest := markupTag.ReplaceAllString(text[len(m[0]):], "")
		return strings.TrimSpace(m[1]), strings.TrimSpace(rest)
	}
	if m := speakerTag.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(text[len(m[0]):])
	}
	return "", strings.TrimSpace(text)
}

// ToSegments converts cues into transcript segments. Cues without a
// speaker keep an empty label so validation reports them.
func ToSegments(sub *Subtitle) []segment.Segment {
	out := make([]segment.Segment, 0, len(sub.Entries))
	for _, e := range sub.Entries {
		out = append(out, segment.New(
			seconds(e.StartTime),
			seconds(e.EndTime),
			e.Speaker,
			strings.ReplaceAll(e.Text, "\n", " "),
		))
	}
	return out
}
