// Package session holds the per-user menu state between requests: the
// extracted catalog, how much of it is revealed, quantities, allergies and
// the last order. Sessions live in an ephemeral store and expire on a TTL.
package session

import (
	"time"

	"github.com/menutalk/kiku/internal/enrich"
	"github.com/menutalk/kiku/internal/menu"
)

// Extraction modes.
const (
	ModeFull   = "full"
	ModeStaged = "staged"
)

// Order is the last placed order with its phrase in the display language.
type Order struct {
	Items    []menu.Dish `json:"items"`
	Phrase   string      `json:"phrase"`
	PlacedAt time.Time   `json:"placedAt"`
}

// Session is the stored state. Catalog holds every extracted dish; only
// Catalog[:Cursor] has been revealed to the user.
type Session struct {
	ID               string `json:"id"`
	DisplayLanguage  string `json:"displayLanguage"`
	DetectedLanguage string `json:"detectedLanguage"`

	Mode    string      `json:"mode"`
	Catalog []menu.Dish `json:"catalog"`
	Cursor  int         `json:"cursor"`

	// ExtractSeq increments when an extraction starts; only the newest run
	// may commit. Generation increments when one commits; batch and image
	// results carrying an older generation are dropped.
	ExtractSeq int64 `json:"extractSeq"`
	Generation int64 `json:"generation"`
	// IssuedIDs counts dish ids handed out so far. A new scan continues
	// from it, so an id never names two different dishes in one session.
	IssuedIDs int `json:"issuedIds"`

	BusySince time.Time       `json:"busySince,omitzero"`
	Progress  enrich.Progress `json:"progress"`

	Allergies []string `json:"allergies"`
	LastOrder *Order   `json:"lastOrder,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Revealed returns the dishes the user can see.
func (s *Session) Revealed() []menu.Dish {
	if s.Cursor > len(s.Catalog) {
		return s.Catalog
	}
	return s.Catalog[:s.Cursor]
}

// HasMore reports whether another batch can be revealed.
func (s *Session) HasMore() bool {
	return s.Cursor < len(s.Catalog)
}

// Busy reports whether a load-more is in flight and not yet abandoned.
func (s *Session) Busy(now time.Time, timeout time.Duration) bool {
	return !s.BusySince.IsZero() && now.Sub(s.BusySince) < timeout
}

// DishView is a revealed dish plus the warning computed from the
// session's allergy selection.
type DishView struct {
	menu.Dish
	AllergyWarning bool `json:"allergyWarning"`
}

// View is what the API returns for a session.
type View struct {
	SessionID        string          `json:"sessionId"`
	DisplayLanguage  string          `json:"displayLanguage"`
	DetectedLanguage string          `json:"detectedLanguage"`
	Dishes           []DishView      `json:"dishes"`
	HasMore          bool            `json:"hasMore"`
	Remaining        int             `json:"remaining"`
	LoadingMore      bool            `json:"loadingMore"`
	Progress         enrich.Progress `json:"progress"`
	Totals           menu.Totals     `json:"totals"`
	Allergies        []string        `json:"allergies"`
	LastOrder        *Order          `json:"lastOrder,omitempty"`
}

// NewView renders s. busy is passed in since it depends on the clock.
func NewView(s *Session, busy bool) View {
	revealed := s.Revealed()
	dishes := make([]DishView, len(revealed))
	for i, d := range revealed {
		dishes[i] = DishView{Dish: d, AllergyWarning: d.ContainsAny(s.Allergies)}
	}

	allergies := s.Allergies
	if allergies == nil {
		allergies = []string{}
	}

	return View{
		SessionID:        s.ID,
		DisplayLanguage:  s.DisplayLanguage,
		DetectedLanguage: s.DetectedLanguage,
		Dishes:           dishes,
		HasMore:          s.HasMore(),
		Remaining:        len(s.Catalog) - len(revealed),
		LoadingMore:      busy,
		Progress:         s.Progress,
		Totals:           menu.ComputeTotals(revealed),
		Allergies:        allergies,
		LastOrder:        s.LastOrder,
	}
}
