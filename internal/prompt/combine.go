package prompt

import "strings"

// Combine joins a prompt and its negative prompt in the "positive [negative]"
// form the backend accepts. A blank negative prompt is omitted.
func Combine(prompt, negative string) string {
	p := strings.TrimSpace(prompt)
	if n := strings.TrimSpace(negative); n != "" {
		return p + " [" + n + "]"
	}
	return p
}
