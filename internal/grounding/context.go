package grounding

import "strings"

// Pair is a source URL with its fetched snippet text.
type Pair struct {
	URL  string
	Text string
}

// BuildContext renders pairs into the text block fed to generation: a
// two-line bullet per source, in input order. Truncation already happened
// at snippet fetch time.
func BuildContext(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(p.URL)
		b.WriteString("\n  ")
		b.WriteString(p.Text)
	}
	return b.String()
}
