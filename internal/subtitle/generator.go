package subtitle

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/mgpai22/verbatim/internal/segment"
)

// Generator turns transcript segments into subtitle cues, splitting long
// segments and wrapping lines by display width.
type Generator struct {
	MaxWidthPerLine int
	MaxLinesPerSub  int
	MaxDuration     time.Duration
}

func NewGenerator() *Generator {
	return &Generator{
		MaxWidthPerLine: 42, // standard subtitle line length
		MaxLinesPerSub:  2,  // most players support 2 lines
		MaxDuration:     7 * time.Second,
	}
}

// Generate converts segments in order. Segments without usable timestamps
// or text are skipped and counted in the second return value.
func (g *Generator) Generate(segments []segment.Segment) (*Subtitle, int) {
	var entries []Entry
	skipped := 0

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Transcription)
		if !seg.Start.Valid || !seg.End.Valid || seg.End.Value <= seg.Start.Value || text == "" {
			skipped++
			continue
		}

		start := duration(max(seg.Start.Value, 0))
		end := duration(seg.End.Value)
		speaker := seg.Speaker.Trimmed()

		for _, e := range g.split(start, end, text) {
			e.Index = len(entries) + 1
			e.Speaker = speaker
			entries = append(entries, e)
		}
	}

	return &Subtitle{Entries: entries, Format: FormatSRT}, skipped
}

func (g *Generator) split(start, end time.Duration, text string) []Entry {
	total := end - start
	maxWidth := g.MaxWidthPerLine * g.MaxLinesPerSub

	n := 1
	if w := runewidth.StringWidth(text); w > maxWidth {
		n = (w + maxWidth - 1) / maxWidth
	}
	if g.MaxDuration > 0 && total > g.MaxDuration {
		if d := int(total/g.MaxDuration) + 1; d > n {
			n = d
		}
	}

	words := strings.Fields(text)
	if n > len(words) {
		n = len(words)
	}
	if n <= 1 {
		return []Entry{{StartTime: start, EndTime: end, Text: g.wrap(text)}}
	}

	// distribute words across splits
	perSplit := (len(words) + n - 1) / n
	step := total / time.Duration(n)

	var entries []Entry
	current := start
	for len(words) > 0 {
		k := min(perSplit, len(words))
		part := strings.Join(words[:k], " ")
		words = words[k:]

		next := current + step
		if len(words) == 0 {
			next = end
		}
		entries = append(entries, Entry{StartTime: current, EndTime: next, Text: g.wrap(part)})
		current = next
	}
	return entries
}

// wrap breaks text into two lines at the word boundary closest to the
// middle when it is wider than one line.
func (g *Generator) wrap(text string) string {
	width := runewidth.StringWidth(text)
	if width <= g.MaxWidthPerLine {
		return text
	}

	words := strings.Fields(text)
	if len(words) < 2 {
		return text
	}

	middle := width / 2
	bestSplit, bestDiff := 0, width
	current := 0
	for i, word := range words[:len(words)-1] {
		current += runewidth.StringWidth(word)
		if i > 0 {
			current++ // space
		}
		diff := current - middle
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			bestDiff = diff
			bestSplit = i + 1
		}
	}

	return strings.Join(words[:bestSplit], " ") + "\n" + strings.Join(words[bestSplit:], " ")
}
