package menu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDishNotFound = errors.New("dish not found")
	ErrNotOrderable = errors.New("dish is malformed and cannot be ordered")
)

// Totals is the derived order summary.
type Totals struct {
	ItemCount int     `json:"itemCount"`
	Total     float64 `json:"total"`
}

// SetQuantity overwrites the quantity of exactly one dish. Negative values
// become 0. Malformed dishes only accept 0.
func SetQuantity(dishes []Dish, id string, n int) error {
	if n < 0 {
		n = 0
	}
	for i := range dishes {
		if dishes[i].ID != id {
			continue
		}
		if n > 0 && !dishes[i].Orderable() {
			return ErrNotOrderable
		}
		dishes[i].Quantity = n
		return nil
	}
	return ErrDishNotFound
}

// ResetAll zeroes every quantity and keeps the dishes.
func ResetAll(dishes []Dish) {
	for i := range dishes {
		dishes[i].Quantity = 0
	}
}

// ComputeTotals sums quantities and quantity-weighted parsed prices.
func ComputeTotals(dishes []Dish) Totals {
	var t Totals
	for _, d := range dishes {
		if d.Quantity <= 0 {
			continue
		}
		t.ItemCount += d.Quantity
		t.Total += ParsePrice(d.Price) * float64(d.Quantity)
	}
	return t
}

// PlaceOrder returns a copy of the dishes with quantity > 0, or nil when
// nothing was ordered.
func PlaceOrder(dishes []Dish) []Dish {
	var order []Dish
	for _, d := range dishes {
		if d.Quantity > 0 && d.Orderable() {
			order = append(order, d)
		}
	}
	return order
}

type phraseTemplate struct {
	item   string // receives name and quantity
	sep    string
	prefix string
	suffix string
}

var orderPhraseTemplates = map[string]phraseTemplate{
	"ja": {item: "%sを%d個", sep: "と", suffix: "ください。"},
	"en": {item: "%s x %d", sep: ", ", prefix: "I would like ", suffix: ", please."},
	"ko": {item: "%s %d개", sep: ", ", suffix: " 주세요."},
	"zh": {item: "%s%d份", sep: "、", prefix: "我要", suffix: "。"},
}

// OrderPhrase renders the order as one sentence in the given language code.
// Unknown codes use the Japanese template.
func OrderPhrase(langCode string, order []Dish) string {
	if len(order) == 0 {
		return ""
	}
	tpl, ok := orderPhraseTemplates[langCode]
	if !ok {
		tpl = orderPhraseTemplates["ja"]
	}

	parts := make([]string, len(order))
	for i, d := range order {
		name := d.TranslatedMenuName
		if name == "" {
			name = d.OriginalMenuName
		}
		parts[i] = fmt.Sprintf(tpl.item, name, d.Quantity)
	}
	return tpl.prefix + strings.Join(parts, tpl.sep) + tpl.suffix
}

// Phrase is one translated sentence, matched to its source by index.
type Phrase struct {
	Translation   string `json:"translation"`
	Pronunciation string `json:"pronunciation"`
}

// SuggestionPhrases are the canned sentences offered next to the menu.
var SuggestionPhrases = []string{
	"おすすめは何ですか？",
	"おいしいです！",
	"ありがとう！",
}
