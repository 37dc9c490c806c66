package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SubRip format; speakers become a "Name: " prefix
type SRTWriter struct{}

// WebVTT format; speakers become <v Name> voice spans
type VTTWriter struct{}

// Advanced SubStation Alpha format; speakers go in the Name field
type ASSWriter struct {
	Title    string
	FontName string
	FontSize int
}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	case FormatASS:
		return &ASSWriter{
			Title:    "verbatim transcript",
			FontName: "Arial",
			FontSize: 20,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (w *SRTWriter) Render(sub *Subtitle) string {
	var sb strings.Builder
	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTTime(entry.StartTime), formatSRTTime(entry.EndTime))

		text := entry.Text
		if entry.Speaker != "" {
			text = entry.Speaker + ": " + text
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func (w *SRTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func (w *VTTWriter) Render(sub *Subtitle) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, entry := range sub.Entries {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatVTTTime(entry.StartTime), formatVTTTime(entry.EndTime))

		text := entry.Text
		if entry.Speaker != "" {
			text = "<v " + entry.Speaker + ">" + text
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func (w *VTTWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func (w *ASSWriter) Render(sub *Subtitle) string {
	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	fmt.Fprintf(&sb, "Title: %s\n", w.Title)
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("Collisions: Normal\n")
	sb.WriteString("PlayDepth: 0\n\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,2,2,10,10,10,1\n\n",
		w.FontName, w.FontSize)

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, entry := range sub.Entries {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,%s,0,0,0,,%s\n",
			formatASSTime(entry.StartTime),
			formatASSTime(entry.EndTime),
			strings.ReplaceAll(entry.Speaker, ",", " "),
			escapeASSText(entry.Text))
	}

	return sb.String()
}

func (w *ASSWriter) Write(sub *Subtitle, path string) error {
	return writeFile(path, w.Render(sub))
}

func formatSRTTime(d time.Duration) string {
	h, m, s, ms := clock(d)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func formatVTTTime(d time.Duration) string {
	h, m, s, ms := clock(d)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

func formatASSTime(d time.Duration) string {
	h, m, s, ms := clock(d)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, ms/10)
}

func clock(d time.Duration) (h, m, s, ms int) {
	total := int(d.Milliseconds())
	return total / 3600000, total / 60000 % 60, total / 1000 % 60, total % 1000
}

func escapeASSText(text string) string {
	return strings.ReplaceAll(text, "\n", "\\N")
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
