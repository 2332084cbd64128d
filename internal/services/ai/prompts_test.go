package ai

import (
	"strings"
	"testing"
)

func TestBuildMenuPrompt(t *testing.T) {
	tests := []struct {
		name        string
		target      Language
		items       []MenuLine
		contains    []string
		notContains []string
	}{
		{
			name:   "image mode in English",
			target: mustResolve(t, "en"),
			contains: []string{
				"<ROLE>",
				"<FIELDS>",
				"<LANGUAGE_RULES>",
				"<ALLERGEN_IDS>",
				"<OUTPUT_FORMAT>",
				"Write every text field in English",
				"attached images",
				"salmon-roe",
			},
			notContains: []string{"<DISHES>"},
		},
		{
			name:   "item list mode",
			target: mustResolve(t, "ko"),
			items:  []MenuLine{{Name: "Ramen", Price: "¥980"}, {Name: "Gyoza", Price: "¥480"}},
			contains: []string{
				"<DISHES>",
				"1. Ramen - ¥980",
				"2. Gyoza - ¥480",
				"Korean",
			},
		},
		{
			name:     "zero language falls back to default",
			target:   Language{},
			contains: []string{"Write every text field in Japanese"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt := BuildMenuPrompt(tt.target, tt.items)

			for _, f := range MenuFields {
				if !strings.Contains(prompt, `"`+f+`"`) {
					t.Errorf("BuildMenuPrompt() example is missing key %q", f)
				}
			}
			for _, s := range tt.contains {
				if !strings.Contains(prompt, s) {
					t.Errorf("BuildMenuPrompt() did not contain expected string: %s", s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(prompt, s) {
					t.Errorf("BuildMenuPrompt() unexpectedly contained: %s", s)
				}
			}
		})
	}
}

func TestBuildMenuPrompt_Deterministic(t *testing.T) {
	lang := mustResolve(t, "fr")
	items := []MenuLine{{Name: "Bibimbap", Price: "₩9000"}}
	if BuildMenuPrompt(lang, items) != BuildMenuPrompt(lang, items) {
		t.Error("BuildMenuPrompt() is not deterministic")
	}
}

func TestBuildScanPrompt(t *testing.T) {
	prompt := BuildScanPrompt(mustResolve(t, "de"))

	for _, f := range ScanFields {
		if !strings.Contains(prompt, `"`+f+`"`) {
			t.Errorf("BuildScanPrompt() example is missing key %q", f)
		}
	}
	for _, f := range []string{"spicyLevel", "allergyInfo"} {
		if strings.Contains(prompt, f) {
			t.Errorf("BuildScanPrompt() must not request %q", f)
		}
	}
	if !strings.Contains(prompt, "German") {
		t.Error("BuildScanPrompt() did not name the target language")
	}
}

func TestBuildDetectLanguagePrompt(t *testing.T) {
	if !strings.Contains(BuildDetectLanguagePrompt(), `"detectedLanguage"`) {
		t.Error("BuildDetectLanguagePrompt() did not contain the detectedLanguage key")
	}
}

func TestBuildTranslatePrompt(t *testing.T) {
	prompt := BuildTranslatePrompt([]string{"ラーメンを1個ください。", "ありがとう！"}, mustResolve(t, "Korean"))

	for _, s := range []string{"1. ラーメンを1個ください。", "2. ありがとう！", "Korean", "exactly 2 objects", `"pronunciation"`} {
		if !strings.Contains(prompt, s) {
			t.Errorf("BuildTranslatePrompt() did not contain expected string: %s", s)
		}
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		hint     string
		wantCode string
		wantOK   bool
	}{
		{"ja", "ja", true},
		{"Japanese", "ja", true},
		{"日本語", "ja", true},
		{"Japan", "ja", true},
		{"韓国語", "ko", true},
		{"韓国", "ko", true},
		{"Korea", "ko", true},
		{"  spanish ", "es", true},
		{"zh-CN", "zh", true},
		{"Klingon", "ja", false},
		{"", "ja", false},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			got, ok := ResolveLanguage(tt.hint, DefaultLanguage())
			if got.Code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("ResolveLanguage(%q) = (%s, %v), want (%s, %v)", tt.hint, got.Code, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestResolveLanguageUsesGivenFallback(t *testing.T) {
	english, ok := Lookup("en")
	if !ok {
		t.Fatal("en not in table")
	}

	got, ok := ResolveLanguage("Klingon", english)
	if ok || got.Code != "en" {
		t.Errorf("ResolveLanguage(Klingon, en) = (%s, %v), want (en, false)", got.Code, ok)
	}

	got, _ = ResolveLanguage("", english)
	if got.Code != "en" {
		t.Errorf("ResolveLanguage(\"\", en) = %s, want en", got.Code)
	}
}

func TestDefaultLanguage(t *testing.T) {
	if got := DefaultLanguage(); got.Code != DefaultLanguageCode || got.Name != "Japanese" {
		t.Errorf("DefaultLanguage() = %+v", got)
	}
	if _, ok := Lookup("xx"); ok {
		t.Error("Lookup(xx) should fail")
	}
}

func mustResolve(t *testing.T, hint string) Language {
	t.Helper()
	l, ok := ResolveLanguage(hint, DefaultLanguage())
	if !ok {
		t.Fatalf("language %q not in table", hint)
	}
	return l
}
