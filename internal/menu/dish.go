package menu

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxSpicyLevel is the top of the 0-5 spice scale the model estimates.
const MaxSpicyLevel = 5

// AllergyInfo is one allergen the model thinks a dish may contain.
type AllergyInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Dish is one parsed menu entry.
type Dish struct {
	ID                 string        `json:"id"`
	OriginalMenuName   string        `json:"originalMenuName"`
	TranslatedMenuName string        `json:"translatedMenuName"`
	Description        string        `json:"description"`
	Price              string        `json:"price"`
	SpicyLevel         int           `json:"spicyLevel"`
	AllergyInfo        []AllergyInfo `json:"allergyInfo"`
	Quantity           int           `json:"quantity"`
	ImageURL           string        `json:"imageURL,omitempty"`

	// Malformed dishes stay visible with their Problems but can't be ordered.
	Malformed bool     `json:"malformed,omitempty"`
	Problems  []string `json:"problems,omitempty"`
}

// DishID renders the session-unique identifier for the n-th dish (1-based).
func DishID(n int) string {
	return fmt.Sprintf("menu-%d", n)
}

// Orderable reports whether the dish can carry a quantity.
func (d Dish) Orderable() bool {
	return !d.Malformed
}

// ParsePrice strips everything but digits and '.' and parses the rest.
// Prices with no numeric content are worth 0.
func ParsePrice(price string) float64 {
	var b strings.Builder
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// ClampSpicy keeps a model estimate inside 0..MaxSpicyLevel.
func ClampSpicy(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxSpicyLevel {
		return MaxSpicyLevel
	}
	return level
}

// Validate returns the list of required fields the dish is missing.
func (d Dish) Validate() []string {
	var problems []string
	if strings.TrimSpace(d.OriginalMenuName) == "" {
		problems = append(problems, "originalMenuName is missing")
	}
	if strings.TrimSpace(d.TranslatedMenuName) == "" {
		problems = append(problems, "translatedMenuName is missing")
	}
	if strings.TrimSpace(d.Price) == "" {
		problems = append(problems, "price is missing")
	}
	return problems
}
