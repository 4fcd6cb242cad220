// Package lang validates the language codes a workout plan may request and
// maps them to the voices of the offline speech engine.
package lang

import (
	"fmt"
	"strings"
)

// Default is spoken when a plan names no language.
const Default = "en"

// espeakVoices maps ISO 639-1 base codes accepted for speech to espeak voice
// names. Regional variants fall back to the base voice unless listed in
// regionalVoices.
var espeakVoices = map[string]string{
	"af": "af",
	"ar": "ar",
	"bg": "bg",
	"bn": "bn",
	"ca": "ca",
	"cs": "cs",
	"da": "da",
	"de": "de",
	"el": "el",
	"en": "en",
	"es": "es",
	"et": "et",
	"fi": "fi",
	"fr": "fr-fr",
	"gu": "gu",
	"hi": "hi",
	"hr": "hr",
	"hu": "hu",
	"id": "id",
	"it": "it",
	"ja": "ja",
	"kn": "kn",
	"ko": "ko",
	"lv": "lv",
	"ml": "ml",
	"mr": "mr",
	"ms": "ms",
	"nl": "nl",
	"no": "nb",
	"pl": "pl",
	"pt": "pt",
	"ro": "ro",
	"ru": "ru",
	"sk": "sk",
	"sr": "sr",
	"sv": "sv",
	"sw": "sw",
	"ta": "ta",
	"te": "te",
	"th": "th",
	"tr": "tr",
	"uk": "uk",
	"ur": "ur",
	"vi": "vi",
	"zh": "cmn",
}

// regionalVoices lists locales with a dedicated espeak voice.
var regionalVoices = map[string]string{
	"en-gb": "en-gb",
	"en-us": "en-us",
	"fr-be": "fr-be",
	"pt-br": "pt-br",
	"zh-tw": "yue",
	"es-mx": "es-419",
}

// Normalize lowercases a code and uses hyphens: "pt_BR" -> "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", "-"))
}

// BaseCode returns the ISO 639-1 part of a locale: "pt-BR" -> "pt".
func BaseCode(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// Validate reports whether code (or its base language) can be spoken.
// An empty code is valid and means Default.
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if _, ok := espeakVoices[BaseCode(code)]; !ok {
		return fmt.Errorf("unsupported language %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			code, ErrInvalid)
	}
	return nil
}

// OrDefault returns the normalized code, or Default when code is empty.
func OrDefault(code string) string {
	if code == "" {
		return Default
	}
	return Normalize(code)
}

// EspeakVoice returns the espeak voice for code, preferring a regional voice.
// Unknown codes map to the Default voice.
func EspeakVoice(code string) string {
	normalized := OrDefault(code)
	if v, ok := regionalVoices[normalized]; ok {
		return v
	}
	if v, ok := espeakVoices[BaseCode(normalized)]; ok {
		return v
	}
	return espeakVoices[Default]
}

// DisplayName returns a human-readable name for common languages,
// falling back to the code itself.
func DisplayName(code string) string {
	names := map[string]string{
		"en":    "English",
		"en-gb": "British English",
		"en-us": "American English",
		"fr":    "French",
		"es":    "Spanish",
		"de":    "German",
		"it":    "Italian",
		"pt":    "Portuguese",
		"pt-br": "Brazilian Portuguese",
		"nl":    "Dutch",
		"ja":    "Japanese",
		"zh":    "Chinese",
		"ru":    "Russian",
	}
	normalized := Normalize(code)
	if name, ok := names[normalized]; ok {
		return name
	}
	if name, ok := names[BaseCode(normalized)]; ok {
		return name
	}
	return code
}
