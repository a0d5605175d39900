// Package langtag detects the language of statute text. Canadian
// federal law is published in English and French; detection lets the
// ingester tag each version with an ISO 639-1 code.
package langtag

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// Building the detector loads language models, so it is deferred until
// the first detection and shared afterwards.
func get() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.French).
			Build()
	})
	return detector
}

// Detect returns "en" or "fr" for the given text, or "" when the text
// is too short or ambiguous to classify.
func Detect(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 20 {
		return ""
	}
	lang, ok := get().DetectLanguageOf(trimmed)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// IsFrench reports whether the text classifies as French.
func IsFrench(text string) bool {
	return Detect(text) == "fr"
}
