// Package langdetect guesses the natural language of free text. It is only
// a hint for callers; prompts never depend on it.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

const (
	minLetters  = 6
	maxSampleRn = 2000
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Result is a detected language.
type Result struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
}

// DetectISO6391 returns the lowercase ISO 639-1 code of text, or "" when
// the sample is too short or ambiguous.
func DetectISO6391(text string) string {
	result, ok := Detect(text)
	if !ok {
		return ""
	}
	return result.Code
}

// Detect reports the most likely language of text with its confidence.
func Detect(text string) (Result, bool) {
	sample := trimSample(text)
	if sample == "" {
		return Result{}, false
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return Result{}, false
	}

	d := getDetector()
	language, exists := d.DetectLanguageOf(sample)
	if !exists {
		return Result{}, false
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return Result{}, false
	}
	return Result{
		Code:       code,
		Confidence: d.ComputeLanguageConfidence(sample, language),
	}, true
}

func trimSample(text string) string {
	sample := strings.TrimSpace(text)
	runes := 0
	for idx := range sample {
		if runes == maxSampleRn {
			return sample[:idx]
		}
		runes++
	}
	return sample
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})
	return detector
}
