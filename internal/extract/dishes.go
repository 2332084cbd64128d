package extract

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/menu"
)

// StringOrNumber can unmarshal from JSON string or number
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	// Try unmarshal as string first
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StringOrNumber(str)
		return nil
	}
	// Try as number
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = StringOrNumber(strconv.FormatFloat(num, 'f', -1, 64))
	return nil
}

// spiceLevel tolerates numbers, numeric strings and garbage (which reads as 0).
type spiceLevel int

func (l *spiceLevel) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*l = spiceLevel(math.Round(num))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			*l = spiceLevel(n)
			return nil
		}
	}
	slog.Debug("Ignoring unparseable spicyLevel", "value", string(data))
	*l = 0
	return nil
}

// allergyList accepts [{"id","name"}] as well as a bare list of ids.
type allergyList []menu.AllergyInfo

func (a *allergyList) UnmarshalJSON(data []byte) error {
	var objs []menu.AllergyInfo
	if err := json.Unmarshal(data, &objs); err == nil {
		*a = objs
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		out := make([]menu.AllergyInfo, 0, len(ids))
		for _, id := range ids {
			out = append(out, menu.AllergyInfo{ID: id, Name: id})
		}
		*a = out
		return nil
	}
	slog.Debug("Ignoring unparseable allergyInfo", "value", string(data))
	*a = nil
	return nil
}

type rawDish struct {
	OriginalMenuName   string         `json:"originalMenuName"`
	TranslatedMenuName string         `json:"translatedMenuName"`
	Description        string         `json:"description"`
	Price              StringOrNumber `json:"price"`
	SpicyLevel         spiceLevel     `json:"spicyLevel"`
	AllergyInfo        allergyList    `json:"allergyInfo"`
}

func (r rawDish) toDish() menu.Dish {
	d := menu.Dish{
		OriginalMenuName:   strings.TrimSpace(r.OriginalMenuName),
		TranslatedMenuName: strings.TrimSpace(r.TranslatedMenuName),
		Description:        strings.TrimSpace(r.Description),
		Price:              strings.TrimSpace(string(r.Price)),
		SpicyLevel:         menu.ClampSpicy(int(r.SpicyLevel)),
		AllergyInfo:        menu.NormalizeAllergyInfo(r.AllergyInfo),
	}
	if problems := d.Validate(); len(problems) > 0 {
		d.Malformed = true
		d.Problems = problems
	}
	return d
}

// Dishes parses model output into dish records. offset is the number of
// dishes the session already holds; ids continue from there as menu-<n>.
// Records missing a required field are kept and flagged as malformed.
func Dishes(raw string, offset int) ([]menu.Dish, error) {
	items, err := decodeDishes(raw)
	if err != nil {
		return nil, err
	}

	dishes := make([]menu.Dish, len(items))
	for i, it := range items {
		dishes[i] = it.toDish()
		dishes[i].ID = menu.DishID(offset + i + 1)
	}
	return dishes, nil
}

// Details parses the per-batch detail response of staged extraction. The
// result is positional: exactly want records in request order.
func Details(raw string, want int) ([]menu.Dish, error) {
	items, err := decodeDishes(raw)
	if err != nil {
		return nil, err
	}
	if len(items) != want {
		return nil, errors.NewParseError("model returned a different number of dishes than requested", "DETAIL_COUNT_MISMATCH", raw, nil)
	}

	dishes := make([]menu.Dish, len(items))
	for i, it := range items {
		dishes[i] = it.toDish()
	}
	return dishes, nil
}

func decodeDishes(raw string) ([]rawDish, error) {
	fragment, strategy, err := JSON(raw, Array)
	if err != nil {
		return nil, err
	}

	var items []rawDish
	if err := json.Unmarshal([]byte(fragment), &items); err != nil {
		repaired, ok := repairTruncatedArray(fragment)
		if !ok {
			return nil, errors.NewParseError("model output is not a valid dish list", "INVALID_DISH_JSON", raw, err)
		}
		if rerr := json.Unmarshal([]byte(repaired), &items); rerr != nil {
			return nil, errors.NewParseError("model output is not a valid dish list", "INVALID_DISH_JSON", raw, err)
		}
		slog.Warn("Recovered truncated dish list", "strategy", strategy, "dishes", len(items))
	}
	return items, nil
}

// repairTruncatedArray closes an array that was cut off mid-element by
// dropping everything after the last complete object.
func repairTruncatedArray(fragment string) (string, bool) {
	s := strings.TrimSpace(fragment)
	if !strings.HasPrefix(s, "[") {
		return "", false
	}
	last := strings.LastIndex(s, "}")
	if last == -1 {
		return "", false
	}
	return s[:last+1] + "]", true
}
