package prompt

import (
	"regexp"
	"strings"
)

// legacyWeight matches an explicit float weight closing a group, "word:1.25)".
var legacyWeight = regexp.MustCompile(`:(\d\.\d+)\)`)

// Normalize converts legacy attention syntax in prompt to the canonical one.
//
// Parenthesis groups become "(content)" followed by one '+' per ')' found in
// the group; curly brace groups become "(content)" followed by one '-' per '}'.
// Groups carrying a float weight such as "(cat:1.25)" keep their shape and the
// weight is rewritten to "(cat)1.3". Escaped parentheses "\(" and "\)" are
// literal text and never grouped.
func Normalize(prompt string) string {
	if !strings.ContainsAny(prompt, "({") {
		return prompt
	}
	if UsesCanonicalSyntax(prompt) {
		return prompt
	}
	escOpen, escClose := sentinels(prompt)
	p := strings.NewReplacer(`\(`, escOpen, `\)`, escClose).Replace(prompt)
	p = rewriteGroups(p, '(', ')', "+", true)
	p = rewriteGroups(p, '{', '}', "-", false)
	p = rewriteLegacyWeights(p)
	return strings.NewReplacer(escOpen, `\(`, escClose, `\)`).Replace(p)
}

// sentinels returns two private-use runes absent from p, standing in for
// escaped parentheses while groups are rewritten.
func sentinels(p string) (string, string) {
	var out []string
	for r := rune(0xE000); len(out) < 2; r++ {
		if !strings.ContainsRune(p, r) {
			out = append(out, string(r))
		}
	}
	return out[0], out[1]
}

// UsesCanonicalSyntax reports whether prompt already carries canonical
// weights ("(a)+", "(a)-", "(a)1.2") or blend/swap directives.
func UsesCanonicalSyntax(p string) bool {
	if strings.Contains(p, ")+") || strings.Contains(p, ")-") {
		return true
	}
	if strings.Contains(p, ".blend(") || strings.Contains(p, ".swap(") {
		return true
	}
	for i := 0; i+1 < len(p); i++ {
		if p[i] == ')' && isDigit(p[i+1]) {
			return true
		}
	}
	return false
}

// rewriteGroups replaces the balanced open/close groups of p with their
// canonical form. The weight is the number of close characters in the whole
// group, a rough stand-in for nesting depth. Each distinct group text is
// replaced everywhere it occurs, in order of first appearance, so a rewrite can
// also reach into a later group that contains the same text.
func rewriteGroups(p string, open, close byte, weight string, skipWeighted bool) string {
	groups := balancedGroups(p, open, close)
	if len(groups) == 0 {
		return p
	}
	strip := strings.NewReplacer(string(open), "", string(close), "")
	seen := make(map[string]bool, len(groups))
	for _, m := range groups {
		if seen[m] {
			continue
		}
		seen[m] = true
		if skipWeighted && legacyWeight.MatchString(m) {
			continue
		}
		converted := "(" + strip.Replace(m) + ")" + strings.Repeat(weight, strings.Count(m, string(close)))
		p = strings.ReplaceAll(p, m, converted)
	}
	return p
}

// rewriteLegacyWeights turns "word:1.25)" into "word)1.3".
func rewriteLegacyWeights(p string) string {
	return legacyWeight.ReplaceAllStringFunc(p, func(m string) string {
		return ")" + FormatWeight(m[1:len(m)-1])
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
