package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mgpai22/verbatim/internal/agent"
	"github.com/mgpai22/verbatim/internal/validate"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s (use text or json)", s)
	}
}

// Result is what gets rendered: a validation report and, after an audit,
// the reconciled claims.
type Result struct {
	Source string                `json:"source,omitempty"`
	Report *validate.Report      `json:"report"`
	Claims []agent.Claim         `json:"claims,omitempty"`
	Tally  map[agent.Verdict]int `json:"tally,omitempty"`
}

const (
	colSeverity = 9
	colCode     = 27
	colSegments = 12
	colVerdict  = 14
	maxSpeakers = 60
)

func Write(w io.Writer, format Format, res Result) error {
	switch format {
	case FormatJSON:
		return JSON(w, res)
	case FormatText, "":
		return Text(w, res)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// JSON writes res as indented JSON. Upheld claims are tallied by verdict.
func JSON(w io.Writer, res Result) error {
	if len(res.Claims) > 0 && res.Tally == nil {
		res.Tally = agent.Summary(res.Claims)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Text writes a human readable summary with aligned columns.
func Text(w io.Writer, res Result) error {
	r := res.Report
	if r == nil {
		return fmt.Errorf("no report to render")
	}

	var sb strings.Builder
	if res.Source != "" {
		fmt.Fprintf(&sb, "%s\n", res.Source)
	}

	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}
	fmt.Fprintf(&sb, "status:   %s (%s, %s)\n", status,
		plural(len(r.Errors), "error"), plural(len(r.Warnings), "warning"))
	fmt.Fprintf(&sb, "segments: %d\n", r.Stats.SegmentCount)

	speakers := strings.Join(r.Stats.Speakers, ", ")
	fmt.Fprintf(&sb, "speakers: %d", r.Stats.UniqueSpeakerCount)
	if speakers != "" {
		fmt.Fprintf(&sb, " (%s)", runewidth.Truncate(speakers, maxSpeakers, "…"))
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "duration: %.2fs", r.Stats.DerivedDuration)
	if r.Stats.DeclaredDuration != nil {
		fmt.Fprintf(&sb, " (declared %.2fs)", *r.Stats.DeclaredDuration)
	}
	sb.WriteString("\n")

	findings := append(append([]validate.Finding{}, r.Errors...), r.Warnings...)
	if len(findings) > 0 {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "%s  %s  %s  %s\n",
			padRight("SEVERITY", colSeverity),
			padRight("CODE", colCode),
			padRight("SEGMENTS", colSegments),
			"MESSAGE")
		for _, f := range findings {
			fmt.Fprintf(&sb, "%s  %s  %s  %s\n",
				padRight(string(f.Severity), colSeverity),
				padRight(string(f.Code), colCode),
				padRight(indices(f.Segments), colSegments),
				f.Message)
		}
	}

	if len(res.Claims) > 0 {
		writeClaims(&sb, res.Claims)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeClaims(sb *strings.Builder, claims []agent.Claim) {
	tally := agent.Summary(claims)
	verdicts := make([]string, 0, len(tally))
	for v := range tally {
		verdicts = append(verdicts, string(v))
	}
	sort.Strings(verdicts)

	parts := make([]string, 0, len(verdicts))
	for _, v := range verdicts {
		parts = append(parts, fmt.Sprintf("%d %s", tally[agent.Verdict(v)], v))
	}

	fmt.Fprintf(sb, "\nclaims:   %d", len(claims))
	if len(parts) > 0 {
		fmt.Fprintf(sb, " (upheld: %s)", strings.Join(parts, ", "))
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "%s  %s  %s  %s  %s\n",
		padLeft("ID", 3),
		padRight("VERDICT", colVerdict),
		padRight("CODE", colCode),
		padRight("SEGMENTS", colSegments),
		"DETAIL")
	for _, c := range claims {
		verdict := string(c.Verdict)
		if !c.Upheld {
			verdict = "rejected"
		}
		detail := c.Detail
		if !c.Upheld && c.ReviewNote != "" {
			detail += " [" + c.ReviewNote + "]"
		}
		fmt.Fprintf(sb, "%s  %s  %s  %s  %s\n",
			padLeft(strconv.Itoa(c.ID), 3),
			padRight(verdict, colVerdict),
			padRight(runewidth.Truncate(c.Code, colCode, "…"), colCode),
			padRight(indices(c.Segments), colSegments),
			detail)
	}
}

func indices(segs []int) string {
	if len(segs) == 0 {
		return "-"
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}

// padRight pads s with spaces so its display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

// Table writes rows under header, each column padded to its widest cell by
// display width.
func Table(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	var sb strings.Builder
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i == len(widths)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(padRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
