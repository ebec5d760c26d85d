package prompt

import "strings"

// FormatWeight rounds a "D.DDD" weight literal to at most one decimal place,
// half away from zero, dropping a trailing ".0": "1.0" -> "1", "1.25" -> "1.3",
// "9.96" -> "10". Rounding works on the decimal digits, so "1.15" -> "1.2".
// Input that is not of that shape is returned unchanged.
func FormatWeight(lit string) string {
	dot := strings.IndexByte(lit, '.')
	if dot <= 0 || dot == len(lit)-1 || !allDigits(lit[:dot]) || !allDigits(lit[dot+1:]) {
		return lit
	}
	whole := []byte(lit[:dot])
	frac := lit[dot+1:]
	tenths := int(frac[0] - '0')
	if len(frac) > 1 && frac[1] >= '5' {
		tenths++
	}
	if tenths == 10 {
		tenths = 0
		whole = increment(whole)
	}
	s := strings.TrimLeft(string(whole), "0")
	if s == "" {
		s = "0"
	}
	if tenths != 0 {
		s += "." + string(rune('0'+tenths))
	}
	return s
}

// increment adds one to a decimal digit string.
func increment(d []byte) []byte {
	for i := len(d) - 1; i >= 0; i-- {
		if d[i] < '9' {
			d[i]++
			return d
		}
		d[i] = '0'
	}
	return append([]byte{'1'}, d...)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
