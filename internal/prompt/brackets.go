package prompt

// groupSpans returns the [start, end) byte ranges of the maximal,
// non-overlapping, balanced groups of s delimited by open and close, in order
// of appearance. A group must enclose at least one character, so "()" alone is
// not a group; an opening character without a matching close is skipped and
// scanning resumes right after it.
func groupSpans(s string, open, close byte) [][2]int {
	var out [][2]int
	for i := 0; i < len(s); i++ {
		if s[i] != open {
			continue
		}
		end := matchClose(s, i, open, close)
		if end < 0 || end == i+1 {
			continue
		}
		out = append(out, [2]int{i, end + 1})
		i = end
	}
	return out
}

func balancedGroups(s string, open, close byte) []string {
	var out []string
	for _, sp := range groupSpans(s, open, close) {
		out = append(out, s[sp[0]:sp[1]])
	}
	return out
}

// matchClose returns the index of the close character balancing s[start], or -1.
func matchClose(s string, start int, open, close byte) int {
	depth := 0
	for j := start; j < len(s); j++ {
		switch s[j] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
