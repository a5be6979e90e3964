package vision

import "strings"

// StitchChunks merges per-chunk transcripts into one text. Consecutive
// chunks share an overlapping band of the receipt, so the model usually
// repeats a few lines at the seam; the merge drops the longest run of lines
// that ends one chunk and starts the next.
func StitchChunks(parts []string) string {
	var lines []string
	for _, p := range parts {
		next := splitLines(p)
		if len(lines) == 0 {
			lines = next
			continue
		}
		k := lineOverlap(lines, next)
		lines = append(lines, next[k:]...)
	}
	return strings.Join(lines, "\n")
}

// lineOverlap returns the largest k such that the last k lines of a equal
// the first k lines of b after whitespace trimming.
func lineOverlap(a, b []string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for k := max; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if strings.TrimSpace(a[len(a)-k+i]) != strings.TrimSpace(b[i]) {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

func splitLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, ln)
	}
	return out
}
