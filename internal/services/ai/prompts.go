package ai

import (
	"fmt"
	"strings"

	"github.com/menutalk/kiku/internal/menu"
)

// Canonical output keys. The extractor decodes exactly these names.
var (
	MenuFields = []string{"originalMenuName", "translatedMenuName", "description", "price", "spicyLevel", "allergyInfo"}
	ScanFields = []string{"originalMenuName", "translatedMenuName", "description", "price"}
)

// MenuLine is one already-detected dish handed back to the model for details.
type MenuLine struct {
	Name  string
	Price string
}

const roleSection = `<ROLE>
You are a restaurant menu interpreter. You read menus written in any language and explain each dish to a traveller in their own language. You answer with JSON only.
</ROLE>`

const languageRuleSection = `<LANGUAGE_RULES>
- Write every text field in %[1]s, except originalMenuName.
- originalMenuName must be copied exactly as written on the menu, in its original script.
- Do not mix any language other than %[1]s into translatedMenuName or description.
- For proper nouns in translatedMenuName, transliterate naturally into %[1]s.
</LANGUAGE_RULES>`

const fullFieldSection = `<FIELDS>
For every dish provide all six fields. Missing fields are not allowed.
- originalMenuName: the dish name exactly as written on the menu.
- translatedMenuName: a natural %[1]s name for the dish.
- description: a %[1]s summary of the dish, about 150 characters, understandable to someone who has never eaten it.
- price: the price including its currency symbol, e.g. "$40.5" or "¥980".
- spicyLevel: your estimate of how spicy the dish is, an integer from 0 (not spicy) to 5 (very spicy).
- allergyInfo: allergens the dish may contain, as a list of {"id", "name"} objects. Use only ids from ALLERGEN_IDS; write name in %[1]s.
</FIELDS>`

const scanFieldSection = `<FIELDS>
For every dish provide these four fields.
- originalMenuName: the dish name exactly as written on the menu.
- translatedMenuName: a natural %[1]s name for the dish.
- description: one short %[1]s sentence about the dish.
- price: the price including its currency symbol, exactly as printed.
</FIELDS>`

const fullExample = `[
  {
    "originalMenuName": "Tonkotsu Ramen",
    "translatedMenuName": "...",
    "description": "...",
    "price": "¥980",
    "spicyLevel": 0,
    "allergyInfo": [{"id": "wheat", "name": "..."}, {"id": "egg", "name": "..."}]
  }
]`

const scanExample = `[
  {"originalMenuName": "Tonkotsu Ramen", "translatedMenuName": "...", "description": "...", "price": "¥980"},
  {"originalMenuName": "Gyoza (6pcs)", "translatedMenuName": "...", "description": "...", "price": "¥480"}
]`

const outputFormatSection = `<OUTPUT_FORMAT>
Return a JSON array with one object per dish, wrapped in a ` + "```json" + ` code block, and nothing else. Keep the keys exactly as shown:
` + "```json" + `
%s
` + "```" + `
</OUTPUT_FORMAT>`

func allergenSection() string {
	var sb strings.Builder
	sb.WriteString("<ALLERGEN_IDS>\n")
	for _, a := range menu.Allergens {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", a.ID, a.EnglishName))
	}
	sb.WriteString("</ALLERGEN_IDS>")
	return sb.String()
}

func itemListSection(items []MenuLine) string {
	var sb strings.Builder
	sb.WriteString("<DISHES>\n")
	sb.WriteString("The menu has already been read. Describe exactly these dishes, one object per line, in this order:\n")
	for i, it := range items {
		sb.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, it.Name, it.Price))
	}
	sb.WriteString("</DISHES>")
	return sb.String()
}

// BuildMenuPrompt renders the full six-field menu prompt. With a nil item
// list the model reads the attached menu images; otherwise it fills in
// details for the given dishes only.
func BuildMenuPrompt(target Language, items []MenuLine) string {
	if target.Name == "" {
		target = DefaultLanguage()
	}

	var sb strings.Builder
	sb.WriteString(roleSection)
	sb.WriteString("\n\n")
	if len(items) == 0 {
		sb.WriteString("The attached images are pages of a restaurant menu. Analyse every dish on them.\n\n")
	} else {
		sb.WriteString(itemListSection(items))
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf(fullFieldSection, target.Name))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(languageRuleSection, target.Name))
	sb.WriteString("\n\n")
	sb.WriteString(allergenSection())
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(outputFormatSection, fullExample))
	return sb.String()
}

// BuildScanPrompt renders the lighter four-field prompt used to list every
// dish quickly before details are requested batch by batch.
func BuildScanPrompt(target Language) string {
	if target.Name == "" {
		target = DefaultLanguage()
	}

	var sb strings.Builder
	sb.WriteString(roleSection)
	sb.WriteString("\n\n")
	sb.WriteString("The attached images are pages of a restaurant menu. List every dish on them.\n\n")
	sb.WriteString(fmt.Sprintf(scanFieldSection, target.Name))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(languageRuleSection, target.Name))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf(outputFormatSection, scanExample))
	return sb.String()
}

// BuildDetectLanguagePrompt asks for the language the menu is written in.
func BuildDetectLanguagePrompt() string {
	return `The attached images are a restaurant menu. Identify the single language the menu text is written in.
Answer with the English name of the language only, as JSON in a ` + "```json" + ` code block:
` + "```json" + `
{"detectedLanguage": "Korean"}
` + "```"
}

// BuildTranslatePrompt asks for a translation plus a katakana pronunciation
// guide for each numbered phrase, returned in the same order.
func BuildTranslatePrompt(phrases []string, target Language) string {
	if target.Name == "" {
		target = DefaultLanguage()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate each of the following phrases into natural %s, as a customer would say it to restaurant staff. ", target.Name))
	sb.WriteString("For each translation also write its pronunciation in katakana.\n\n")
	sb.WriteString("Phrases:\n")
	for i, p := range phrases {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, p))
	}
	sb.WriteString(fmt.Sprintf("\nReturn exactly %d objects, in the same order as the phrases, as a JSON array in a ```json code block:\n", len(phrases)))
	sb.WriteString("```json\n")
	sb.WriteString(`[
  {"translation": "...", "pronunciation": "..."}
]`)
	sb.WriteString("\n```")
	return sb.String()
}
