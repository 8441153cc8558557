package config

import (
	"fmt"

	"golang.org/x/text/language"
)

// TTSEngine names the speech synthesizer used to narrate a book.
type TTSEngine string

const (
	EngineVoicevox TTSEngine = "voicevox"
	EngineSay      TTSEngine = "say"
)

// Language describes everything narration and alignment need to know about
// one supported language: which synthesizer speaks it and which Montreal
// Forced Aligner models align it.
type Language struct {
	Code          string // ja_JP style locale code
	Tag           language.Tag
	Engine        TTSEngine
	Voice         string // engine voice name, empty for voicevox
	MFADictionary string
	MFAAcoustic   string
}

// EpubLang returns the language code for dc:language and xml:lang attributes.
func (l Language) EpubLang() string {
	base, _ := l.Tag.Base()
	return base.String()
}

var languages = map[string]Language{
	"ja_JP": {
		Code:          "ja_JP",
		Tag:           language.Japanese,
		Engine:        EngineVoicevox,
		MFADictionary: "japanese_mfa",
		MFAAcoustic:   "japanese_mfa",
	},
	"en_US": {
		Code:          "en_US",
		Tag:           language.AmericanEnglish,
		Engine:        EngineSay,
		Voice:         "Samantha",
		MFADictionary: "english_us_arpa",
		MFAAcoustic:   "english_us_arpa",
	},
	"de_DE": {
		Code:          "de_DE",
		Tag:           language.German,
		Engine:        EngineSay,
		Voice:         "Anna",
		MFADictionary: "german_mfa",
		MFAAcoustic:   "german_mfa",
	},
}

// GetLanguage looks up language support by locale code.
func GetLanguage(code string) (Language, error) {
	l, ok := languages[code]
	if !ok {
		return Language{}, fmt.Errorf("unsupported language %q", code)
	}
	return l, nil
}
