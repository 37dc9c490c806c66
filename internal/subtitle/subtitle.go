package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Speaker   string
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries []Entry
	Format  Format
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatSRT, FormatVTT, FormatASS:
		return f, nil
	case "ssa":
		return FormatASS, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatSRT
	}
	return f
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	case FormatASS:
		return ".ass"
	default:
		return ".srt"
	}
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func duration(s float64) time.Duration {
	return time.Duration(s*1000+0.5) * time.Millisecond
}
