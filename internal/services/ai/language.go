package ai

import "strings"

// Language is a display or menu language the assistant knows how to name.
type Language struct {
	Code         string // ISO 639-1
	Name         string // English name, used in prompts
	JapaneseName string
	SpeechTag    string // BCP-47 tag for speech synthesis
	DeepLCode    string // DeepL target_lang; empty when DeepL has no such target
	aliases      []string
}

// Languages is the supported language table.
var Languages = []Language{
	{Code: "ja", Name: "Japanese", JapaneseName: "日本語", SpeechTag: "ja-JP", DeepLCode: "JA", aliases: []string{"japan"}},
	{Code: "en", Name: "English", JapaneseName: "英語", SpeechTag: "en-US", DeepLCode: "EN-US", aliases: []string{"usa", "uk", "united states"}},
	{Code: "es", Name: "Spanish", JapaneseName: "スペイン語", SpeechTag: "es-ES", DeepLCode: "ES", aliases: []string{"spain", "español"}},
	{Code: "fr", Name: "French", JapaneseName: "フランス語", SpeechTag: "fr-FR", DeepLCode: "FR", aliases: []string{"france", "français"}},
	{Code: "de", Name: "German", JapaneseName: "ドイツ語", SpeechTag: "de-DE", DeepLCode: "DE", aliases: []string{"germany", "deutsch"}},
	{Code: "ko", Name: "Korean", JapaneseName: "韓国語", SpeechTag: "ko-KR", DeepLCode: "KO", aliases: []string{"korea", "한국어"}},
	{Code: "vi", Name: "Vietnamese", JapaneseName: "ベトナム語", SpeechTag: "vi-VN", aliases: []string{"vietnam", "tiếng việt"}},
	{Code: "th", Name: "Thai", JapaneseName: "タイ語", SpeechTag: "th-TH", aliases: []string{"thailand", "ไทย"}},
	{Code: "zh", Name: "Chinese", JapaneseName: "中国語", SpeechTag: "zh-CN", DeepLCode: "ZH", aliases: []string{"china", "mandarin", "中文"}},
}

// DefaultLanguageCode is the built-in fallback when no default language is
// configured.
const DefaultLanguageCode = "ja"

// Lookup finds a language by its ISO code.
func Lookup(code string) (Language, bool) {
	for _, l := range Languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// DefaultLanguage returns the language for DefaultLanguageCode.
func DefaultLanguage() Language {
	l, _ := Lookup(DefaultLanguageCode)
	return l
}

// UnknownLanguage is reported when language detection output is unusable.
const UnknownLanguage = "Unknown"

// ResolveLanguage maps a free-form hint (code, English or Japanese name,
// country name) onto the language table. Unresolved hints return fallback
// with ok false.
func ResolveLanguage(hint string, fallback Language) (Language, bool) {
	norm := strings.ToLower(strings.TrimSpace(hint))
	if norm == "" {
		return fallback, false
	}
	trimmed := strings.TrimSuffix(norm, "語")

	for _, l := range Languages {
		switch {
		case norm == l.Code,
			norm == strings.ToLower(l.Name),
			norm == l.JapaneseName,
			trimmed == strings.TrimSuffix(l.JapaneseName, "語"),
			strings.ToLower(l.SpeechTag) == norm:
			return l, true
		}
		for _, a := range l.aliases {
			if norm == a {
				return l, true
			}
		}
	}
	return fallback, false
}
