package hier

import "strings"

const romanChars = "ivxl"

// isRomanToken reports whether tok consists solely of lowercase roman
// numeral characters. Single letters like "c" or "d" are excluded; in
// statutory text those only appear as letters, never as 100/500.
func isRomanToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !strings.ContainsRune(romanChars, r) {
			return false
		}
	}
	return romanValue(tok) > 0
}

var romanDigit = map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50}

// romanValue returns the numeric value of a lowercase roman numeral, or 0
// when tok is not well formed.
func romanValue(tok string) int {
	total := 0
	prev := 0
	for i := len(tok) - 1; i >= 0; i-- {
		v, ok := romanDigit[tok[i]]
		if !ok {
			return 0
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	if total <= 0 {
		return 0
	}
	return total
}

// nextLetter returns the letter following prev in the (a)...(z)(aa)
// sequence, or empty when prev is empty.
func nextLetter(prev string) string {
	if prev == "" {
		return ""
	}
	last := prev[len(prev)-1]
	if last != 'z' {
		return prev[:len(prev)-1] + string(last+1)
	}
	// (z) wraps to (aa); statutes rarely go further than (zz).
	return strings.Repeat("a", len(prev)+1)
}

// letterNotRoman decides whether a token matched at a letter level is
// really a letter. The collision cases are (i), (v), (x) and runs like
// (ii): "(i)" directly after "(h)" is the ninth letter, while "(i)"
// opening a run (or any multi-character roman token) belongs to a deeper
// roman level and must not split the current one.
func letterNotRoman(prev, tok string) bool {
	if !isRomanToken(tok) {
		return true
	}
	if len(tok) > 1 {
		// (ii), (iv), ... are never letters.
		return false
	}
	// Single i/v/x/l: a letter only when it continues the sequence.
	return prev != "" && tok == nextLetter(prev)
}

// romanNotLetter is the mirror check for roman levels: "(i)" is roman
// unless it continues an alphabetical run, which cannot happen at a level
// whose previous sibling was itself roman.
func romanNotLetter(prev, tok string) bool {
	if prev == "" {
		return tok == "i" || romanValue(tok) > 0 && len(tok) > 1
	}
	return romanValue(tok) == romanValue(prev)+1
}
