package menu

import "strings"

// Allergen is one entry of the canonical allergen vocabulary.
type Allergen struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EnglishName string `json:"englishName"`
	Mandatory   bool   `json:"mandatory"`
}

// Allergens is the shared vocabulary: the 8 mandatory labelling items
// followed by the 20 recommended ones. Both the prompt and the user's
// selection use these ids.
var Allergens = []Allergen{
	{ID: "egg", Name: "卵", EnglishName: "Egg", Mandatory: true},
	{ID: "milk", Name: "乳", EnglishName: "Milk", Mandatory: true},
	{ID: "wheat", Name: "小麦", EnglishName: "Wheat", Mandatory: true},
	{ID: "buckwheat", Name: "そば", EnglishName: "Buckwheat", Mandatory: true},
	{ID: "peanut", Name: "落花生", EnglishName: "Peanut", Mandatory: true},
	{ID: "shrimp", Name: "えび", EnglishName: "Shrimp", Mandatory: true},
	{ID: "crab", Name: "かに", EnglishName: "Crab", Mandatory: true},
	{ID: "soybean", Name: "大豆", EnglishName: "Soybean", Mandatory: true},

	{ID: "abalone", Name: "あわび", EnglishName: "Abalone"},
	{ID: "squid", Name: "いか", EnglishName: "Squid"},
	{ID: "salmon-roe", Name: "いくら", EnglishName: "Salmon roe"},
	{ID: "orange", Name: "オレンジ", EnglishName: "Orange"},
	{ID: "kiwi", Name: "キウイフルーツ", EnglishName: "Kiwi"},
	{ID: "beef", Name: "牛肉", EnglishName: "Beef"},
	{ID: "walnut", Name: "くるみ", EnglishName: "Walnut"},
	{ID: "salmon", Name: "さけ", EnglishName: "Salmon"},
	{ID: "mackerel", Name: "さば", EnglishName: "Mackerel"},
	{ID: "chicken", Name: "鶏肉", EnglishName: "Chicken"},
	{ID: "banana", Name: "バナナ", EnglishName: "Banana"},
	{ID: "pork", Name: "豚肉", EnglishName: "Pork"},
	{ID: "matsutake", Name: "まつたけ", EnglishName: "Matsutake"},
	{ID: "peach", Name: "もも", EnglishName: "Peach"},
	{ID: "yam", Name: "やまいも", EnglishName: "Yam"},
	{ID: "apple", Name: "りんご", EnglishName: "Apple"},
	{ID: "gelatin", Name: "ゼラチン", EnglishName: "Gelatin"},
	{ID: "cashew", Name: "カシューナッツ", EnglishName: "Cashew"},
	{ID: "sesame", Name: "ごま", EnglishName: "Sesame"},
	{ID: "almond", Name: "アーモンド", EnglishName: "Almond"},
}

// aliases maps spellings the model tends to produce onto canonical ids.
var aliases = map[string]string{
	"eggs":         "egg",
	"dairy":        "milk",
	"lactose":      "milk",
	"gluten":       "wheat",
	"soba":         "buckwheat",
	"peanuts":      "peanut",
	"groundnut":    "peanut",
	"prawn":        "shrimp",
	"prawns":       "shrimp",
	"shrimps":      "shrimp",
	"soy":          "soybean",
	"soya":         "soybean",
	"soybeans":     "soybean",
	"ikura":        "salmon-roe",
	"salmon roe":   "salmon-roe",
	"salmon_roe":   "salmon-roe",
	"kiwifruit":    "kiwi",
	"kiwi fruit":   "kiwi",
	"walnuts":      "walnut",
	"cashews":      "cashew",
	"cashew nut":   "cashew",
	"almonds":      "almond",
	"sesame seed":  "sesame",
	"sesame seeds": "sesame",
	"yamaimo":      "yam",
	"apples":       "apple",
	"bananas":      "banana",
	"peaches":      "peach",
}

var allergenIndex = func() map[string]Allergen {
	idx := make(map[string]Allergen, len(Allergens))
	for _, a := range Allergens {
		idx[a.ID] = a
	}
	return idx
}()

// AllergenIDs returns the canonical ids in vocabulary order.
func AllergenIDs() []string {
	ids := make([]string, len(Allergens))
	for i, a := range Allergens {
		ids[i] = a.ID
	}
	return ids
}

// LookupAllergen finds a canonical allergen by id.
func LookupAllergen(id string) (Allergen, bool) {
	a, ok := allergenIndex[id]
	return a, ok
}

// NormalizeAllergenID maps a model-produced id onto the canonical vocabulary.
// Ids that match nothing are returned lowercased and trimmed with ok=false.
func NormalizeAllergenID(id string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	if _, ok := allergenIndex[key]; ok {
		return key, true
	}
	if canonical, ok := aliases[key]; ok {
		return canonical, true
	}
	return key, false
}

// NormalizeAllergyInfo canonicalises ids, drops empties and duplicates,
// and keeps the model's ordering.
func NormalizeAllergyInfo(in []AllergyInfo) []AllergyInfo {
	out := make([]AllergyInfo, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		id, _ := NormalizeAllergenID(a.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, AllergyInfo{ID: id, Name: strings.TrimSpace(a.Name)})
	}
	return out
}

// ContainsAny reports whether any of the dish's allergens is in selected.
func (d Dish) ContainsAny(selected []string) bool {
	if len(selected) == 0 || len(d.AllergyInfo) == 0 {
		return false
	}
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	for _, a := range d.AllergyInfo {
		if want[a.ID] {
			return true
		}
	}
	return false
}
