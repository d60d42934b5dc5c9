package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyContent(t *testing.T) {
	assert.Nil(t, Split("", Options{TargetSize: 100, Overlap: 20}))
}

func TestSplitShortContentSingleWindow(t *testing.T) {
	windows := Split("A. B. C.", Options{TargetSize: 100, Overlap: 20})
	require.Len(t, windows, 1)
	assert.Equal(t, "A. B. C.", windows[0])
}

func TestSplitDeterministic(t *testing.T) {
	content := buildContent(40)
	opts := Options{TargetSize: 120, Overlap: 30}

	first := Split(content, opts)
	second := Split(content, opts)
	assert.Equal(t, first, second)
}

func TestSplitWindowsWithinTargetSize(t *testing.T) {
	content := buildContent(60)
	opts := Options{TargetSize: 150, Overlap: 40}

	for i, w := range Split(content, opts) {
		assert.LessOrEqual(t, len([]rune(w)), opts.TargetSize, "window %d too long", i)
		assert.NotEmpty(t, w, "window %d empty", i)
	}
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("alpha beta ", 8) // ~88 runes
	para2 := strings.Repeat("gamma delta ", 8)
	content := para1 + "\n\n" + para2

	windows := Split(content, Options{TargetSize: 100, Overlap: 0})
	require.GreaterOrEqual(t, len(windows), 2)
	assert.True(t, strings.HasSuffix(windows[0], "\n\n"),
		"first window should end at the paragraph break, got %q", windows[0])
}

func TestSplitFallsBackToWordBoundary(t *testing.T) {
	content := strings.Repeat("word ", 100) // no newlines at all
	windows := Split(content, Options{TargetSize: 50, Overlap: 10})

	require.Greater(t, len(windows), 1)
	for _, w := range windows[:len(windows)-1] {
		assert.True(t, strings.HasSuffix(w, " "), "window %q should end on a word boundary", w)
	}
}

func TestSplitRawCutWhenNoBoundary(t *testing.T) {
	content := strings.Repeat("x", 250)
	windows := Split(content, Options{TargetSize: 100, Overlap: 0})

	require.Len(t, windows, 3)
	assert.Equal(t, strings.Repeat("x", 100), windows[0])
}

func TestSplitCoverageReconstructsContent(t *testing.T) {
	content := buildContent(50)
	windows := Split(content, Options{TargetSize: 200, Overlap: 50})
	require.NotEmpty(t, windows)

	rebuilt := windows[0]
	for _, w := range windows[1:] {
		k := longestOverlap(rebuilt, w)
		rebuilt += w[k:]
	}
	assert.Equal(t, content, rebuilt)
}

func TestSplitOverlapBounded(t *testing.T) {
	content := buildContent(50)
	opts := Options{TargetSize: 200, Overlap: 50}
	windows := Split(content, opts)

	for i := 1; i < len(windows); i++ {
		k := longestOverlap(windows[i-1], windows[i])
		assert.LessOrEqual(t, len([]rune(windows[i][:k])), opts.Overlap)
	}
}

func TestSplitNeverBreaksRunes(t *testing.T) {
	content := strings.Repeat("héllø wörld ünïcode ", 50)
	windows := Split(content, Options{TargetSize: 64, Overlap: 16})

	require.Greater(t, len(windows), 1)
	for i, w := range windows {
		assert.True(t, utf8.ValidString(w), "window %d contains a broken rune", i)
	}
}

func TestSplitSanitizesOptions(t *testing.T) {
	content := buildContent(30)

	// Overlap >= target size must not hang or produce empty windows.
	windows := Split(content, Options{TargetSize: 50, Overlap: 50})
	require.NotEmpty(t, windows)
	for _, w := range windows {
		assert.NotEmpty(t, w)
	}

	// Zero options fall back to defaults.
	assert.NotEmpty(t, Split(content, Options{}))
}

// buildContent produces n sentences across a handful of paragraphs with
// distinct words, so overlap stitching in tests is unambiguous.
func buildContent(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Sentence number %d has unique token tk%d.", i, i)
		switch {
		case i%7 == 6:
			sb.WriteString("\n\n")
		case i%3 == 2:
			sb.WriteString("\n")
		default:
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

// longestOverlap returns the length in bytes of the longest suffix of a
// that is also a prefix of b.
func longestOverlap(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(a, b[:k]) {
			return k
		}
	}
	return 0
}
