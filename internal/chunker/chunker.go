// Package chunker splits document text into overlapping windows sized
// for embedding and retrieval.
package chunker

import "strings"

const (
	// DefaultTargetSize is the default maximum window length in runes.
	DefaultTargetSize = 1000

	// DefaultOverlap is the default number of runes shared between
	// consecutive windows.
	DefaultOverlap = 200
)

// Options configures how content is split.
type Options struct {
	// TargetSize is the maximum window length in runes.
	TargetSize int
	// Overlap is the maximum number of runes consecutive windows share.
	Overlap int
}

func (o Options) sanitized() Options {
	if o.TargetSize <= 0 {
		o.TargetSize = DefaultTargetSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.TargetSize {
		o.Overlap = o.TargetSize / 4
	}
	return o
}

// Split breaks content into ordered windows of at most opts.TargetSize
// runes. It is deterministic: the same content and options always produce
// the same windows. Each cut prefers the largest boundary available inside
// the window: paragraph break, then line break, then word boundary, then a
// raw rune position. Empty content yields no windows; content that fits a
// single window is returned whole.
func Split(content string, opts Options) []string {
	opts = opts.sanitized()

	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= opts.TargetSize {
		return []string{content}
	}

	var windows []string
	start := 0
	for start < len(runes) {
		end := start + opts.TargetSize
		if end >= len(runes) {
			windows = append(windows, string(runes[start:]))
			break
		}
		end = cutPoint(runes, start, end)
		windows = append(windows, string(runes[start:end]))

		next := end - opts.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return windows
}

// cutPoint picks where to end the window [start, limit). It scans backwards
// for a paragraph break, then a line break, then a space, and cuts just
// after the boundary so the separator stays with the earlier window. If no
// boundary exists the window is cut at limit.
func cutPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])

	for _, sep := range []string{"\n\n", "\n", " "} {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + len([]rune(window[:i+len(sep)]))
		}
	}
	return limit
}
