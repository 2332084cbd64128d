package session

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/menutalk/kiku/internal/enrich"
	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/extract"
	"github.com/menutalk/kiku/internal/imaging"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/metrics"
	"github.com/menutalk/kiku/internal/services/ai"
	"github.com/menutalk/kiku/internal/services/model"
	"github.com/menutalk/kiku/internal/services/translate"
)

// Translator is the phrase and language-detection collaborator.
type Translator interface {
	Translate(ctx context.Context, phrases []string, languageHint string) ([]translate.Phrase, error)
	Suggestions(ctx context.Context, languageHint string) ([]translate.Phrase, error)
	DetectLanguage(ctx context.Context, images []model.Attachment) (string, error)
}

// ImageEnricher finds photos for a batch of dishes.
type ImageEnricher interface {
	Enrich(ctx context.Context, dishes []menu.Dish, report enrich.ReportFunc) []enrich.Result
}

// Enqueuer hands a revealed batch to the background worker.
type Enqueuer interface {
	EnqueueEnrichment(ctx context.Context, sessionID string, generation int64, dishIDs []string) error
}

// Settings are the tunables the service needs from config.
type Settings struct {
	Mode            string
	BatchSize       int
	BusyTimeout     time.Duration
	MaxImageBytes   int
	MaxUploads      int
	DefaultLanguage string
}

// Page is a view plus the dishes the last call revealed.
type Page struct {
	View
	Batch []DishView `json:"batch"`
}

var (
	// ErrStale marks a result computed for a menu that has since been replaced.
	ErrStale = stderrors.New("result belongs to a replaced menu")

	errNoop = stderrors.New("nothing to do")
)

// Service owns every state transition of a session.
type Service struct {
	store      Store
	gen        model.Generator
	translator Translator
	enricher   ImageEnricher
	queue      Enqueuer
	settings   Settings
	lang       ai.Language
	now        func() time.Time
}

// NewService creates the session service. enricher may be nil when image
// search is not configured.
func NewService(store Store, gen model.Generator, translator Translator, enricher ImageEnricher, settings Settings) *Service {
	if settings.BatchSize < 1 {
		settings.BatchSize = 1
	}
	if settings.Mode == "" {
		settings.Mode = ModeFull
	}
	lang, ok := ai.ResolveLanguage(settings.DefaultLanguage, ai.DefaultLanguage())
	if !ok && settings.DefaultLanguage != "" {
		slog.Warn("Unknown default language, using built-in default", "language", settings.DefaultLanguage, "default", lang.Code)
	}
	return &Service{
		store:      store,
		gen:        gen,
		translator: translator,
		enricher:   enricher,
		settings:   settings,
		lang:       lang,
		now:        time.Now,
	}
}

// UseQueue sends image enrichment to q instead of running it in the request.
func (s *Service) UseQueue(q Enqueuer) {
	s.queue = q
}

// Create starts an empty session.
func (s *Service) Create(ctx context.Context, displayLanguage string) (*Session, error) {
	lang, _ := ai.ResolveLanguage(displayLanguage, s.lang)

	now := s.now()
	sess := &Session{
		ID:               uuid.NewString(),
		DisplayLanguage:  lang.Code,
		DetectedLanguage: ai.UnknownLanguage,
		Mode:             s.settings.Mode,
		Catalog:          []menu.Dish{},
		Allergies:        []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, mapErr(err)
	}
	slog.InfoContext(ctx, "Session created", "session_id", sess.ID, "display_language", sess.DisplayLanguage)
	return sess, nil
}

// Get returns the rendered session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, mapErr(err)
	}
	return s.view(sess), nil
}

// Delete drops the session and everything in it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return mapErr(s.store.Delete(ctx, id))
}

// Extract reads the menu in images and replaces the session's catalog,
// then reveals the first batch. A failed run leaves the previous catalog
// untouched. When a newer extraction starts before this one finishes,
// this one is discarded.
func (s *Service) Extract(ctx context.Context, id string, images []model.Attachment, languageHint string) (Page, error) {
	if len(images) == 0 {
		return Page{}, errors.NewValidationError("no images provided", "MISSING_IMAGES", "Attach at least one photo of the menu.")
	}
	if s.settings.MaxUploads > 0 && len(images) > s.settings.MaxUploads {
		return Page{}, errors.NewValidationError("too many images", "TOO_MANY_IMAGES", "Send at most a few photos per scan.")
	}

	prepared := make([]model.Attachment, len(images))
	for i, img := range images {
		mime := imaging.DetectMIME(img.Data, img.MIMEType)
		if !strings.HasPrefix(mime, "image/") {
			return Page{}, errors.NewValidationError("upload is not an image", "INVALID_IMAGE", "Send JPEG, PNG or WebP photos.")
		}
		data, mime, err := imaging.Shrink(img.Data, mime, s.settings.MaxImageBytes)
		if err != nil {
			return Page{}, err
		}
		prepared[i] = model.Attachment{Data: data, MIMEType: mime}
	}

	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		sess.ExtractSeq++
		return nil
	})
	if err != nil {
		return Page{}, mapErr(err)
	}
	seq := sess.ExtractSeq
	// IssuedIDs only moves on commit, which a newer start would have made
	// stale, so this offset is current whenever this run commits.
	offset := sess.IssuedIDs

	hint := languageHint
	if strings.TrimSpace(hint) == "" {
		hint = sess.DisplayLanguage
	}
	lang, _ := ai.ResolveLanguage(hint, s.lang)
	mode := s.settings.Mode

	start := time.Now()
	outcome := "success"
	defer func() {
		attrs := metric.WithAttributes(attribute.String("mode", mode), attribute.String("outcome", outcome))
		metrics.MenuExtractionsTotal.Add(ctx, 1, attrs)
		metrics.MenuExtractionDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	prompt := ai.BuildMenuPrompt(lang, nil)
	if mode == ModeStaged {
		prompt = ai.BuildScanPrompt(lang)
	}

	var (
		raw      string
		detected = ai.UnknownLanguage
		g        errgroup.Group
	)
	g.Go(func() error {
		out, err := s.gen.Generate(ctx, prompt, prepared)
		raw = out
		return err
	})
	g.Go(func() error {
		d, err := s.translator.DetectLanguage(ctx, prepared)
		if err != nil {
			slog.WarnContext(ctx, "Language detection failed", "session_id", id, "error", err)
			return nil
		}
		detected = d
		return nil
	})
	if err := g.Wait(); err != nil {
		outcome = "upstream_error"
		return Page{}, err
	}

	dishes, err := extract.Dishes(raw, offset)
	if err != nil {
		outcome = "parse_error"
		slog.WarnContext(ctx, "Menu output could not be parsed", "session_id", id, "raw_length", len(raw), "error", err)
		return Page{}, err
	}

	now := s.now()
	_, err = s.store.Update(ctx, id, func(sess *Session) error {
		if sess.ExtractSeq != seq {
			return ErrStale
		}
		sess.Catalog = dishes
		sess.IssuedIDs = offset + len(dishes)
		sess.Cursor = 0
		sess.Generation++
		sess.Mode = mode
		sess.BusySince = time.Time{}
		sess.Progress = enrich.Progress{}
		sess.DisplayLanguage = lang.Code
		sess.DetectedLanguage = detected
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		if stderrors.Is(err, ErrStale) {
			outcome = "stale"
		}
		return Page{}, mapErr(err)
	}

	slog.InfoContext(ctx, "Menu extracted",
		"session_id", id,
		"dishes", len(dishes),
		"mode", mode,
		"display_language", lang.Code,
		"detected_language", detected,
	)
	return s.LoadNext(ctx, id)
}

// LoadNext reveals the next batch of dishes and enriches only that batch.
// With nothing left it returns the current view without touching the
// model or the store. A second call while one is in flight is refused.
func (s *Service) LoadNext(ctx context.Context, id string) (Page, error) {
	started := s.now()

	var (
		from, to int
		gen      int64
		mode     string
		langCode string
		batch    []menu.Dish
	)
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		if !sess.HasMore() {
			return errNoop
		}
		if sess.Busy(started, s.settings.BusyTimeout) {
			return errors.NewConflictError("more dishes are already loading", "LOAD_IN_PROGRESS", "Wait for the current batch to finish.")
		}
		sess.BusySince = started
		from = sess.Cursor
		to = min(from+s.settings.BatchSize, len(sess.Catalog))
		gen = sess.Generation
		mode = sess.Mode
		langCode = sess.DisplayLanguage
		batch = append([]menu.Dish(nil), sess.Catalog[from:to]...)
		return nil
	})
	if stderrors.Is(err, errNoop) {
		sess, err = s.store.Get(ctx, id)
		if err != nil {
			return Page{}, mapErr(err)
		}
		return Page{View: s.view(sess), Batch: []DishView{}}, nil
	}
	if err != nil {
		return Page{}, mapErr(err)
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		s.clearBusy(context.WithoutCancel(ctx), id, started)
	}
	defer release()

	if mode == ModeStaged {
		batch, err = s.fetchDetails(ctx, langCode, batch)
		if err != nil {
			return Page{}, err
		}
	}

	_, err = s.store.Update(ctx, id, func(sess *Session) error {
		if sess.Generation != gen || sess.Cursor != from {
			return ErrStale
		}
		copy(sess.Catalog[from:to], batch)
		sess.Cursor = to
		sess.Progress = enrich.Progress{Total: len(batch)}
		if s.enricher == nil {
			sess.Progress.Total = 0
		}
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Page{}, mapErr(err)
	}
	metrics.BatchLoadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
	slog.InfoContext(ctx, "Batch revealed", "session_id", id, "from", from, "to", to, "generation", gen)

	if s.enricher != nil {
		if s.queue != nil {
			ids := make([]string, len(batch))
			for i, d := range batch {
				ids[i] = d.ID
			}
			if err := s.queue.EnqueueEnrichment(ctx, id, gen, ids); err != nil {
				slog.WarnContext(ctx, "Failed to enqueue image enrichment", "session_id", id, "error", err)
			}
		} else if err := s.enrichDishes(ctx, id, gen, batch); err != nil && !stderrors.Is(err, ErrStale) {
			slog.WarnContext(ctx, "Image enrichment stopped", "session_id", id, "error", err)
		}
	}

	release()
	sess, err = s.store.Get(ctx, id)
	if err != nil {
		return Page{}, mapErr(err)
	}
	view := s.view(sess)
	end := min(to, len(view.Dishes))
	return Page{View: view, Batch: view.Dishes[min(from, end):end]}, nil
}

// fetchDetails asks the model for the full fields of a scanned batch.
// Identity and price stay as scanned.
func (s *Service) fetchDetails(ctx context.Context, langCode string, batch []menu.Dish) ([]menu.Dish, error) {
	lang, _ := ai.ResolveLanguage(langCode, s.lang)
	lines := make([]ai.MenuLine, len(batch))
	for i, d := range batch {
		lines[i] = ai.MenuLine{Name: d.OriginalMenuName, Price: d.Price}
	}

	raw, err := s.gen.Generate(ctx, ai.BuildMenuPrompt(lang, lines), nil)
	if err != nil {
		return nil, err
	}
	details, err := extract.Details(raw, len(batch))
	if err != nil {
		return nil, err
	}

	out := make([]menu.Dish, len(batch))
	for i, d := range details {
		d.ID = batch[i].ID
		d.OriginalMenuName = batch[i].OriginalMenuName
		d.Price = batch[i].Price
		d.Quantity = batch[i].Quantity
		d.Problems = d.Validate()
		d.Malformed = len(d.Problems) > 0
		out[i] = d
	}
	return out, nil
}

// EnrichBatch searches images for the given dishes of a session. It
// returns ErrStale once the session's menu has been replaced.
func (s *Service) EnrichBatch(ctx context.Context, id string, generation int64, dishIDs []string) error {
	if s.enricher == nil {
		return nil
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Generation != generation {
		return ErrStale
	}

	want := make(map[string]bool, len(dishIDs))
	for _, d := range dishIDs {
		want[d] = true
	}
	var dishes []menu.Dish
	for _, d := range sess.Catalog {
		if want[d.ID] {
			dishes = append(dishes, d)
		}
	}
	return s.enrichDishes(ctx, id, generation, dishes)
}

func (s *Service) enrichDishes(ctx context.Context, id string, generation int64, dishes []menu.Dish) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var applyErr error
	s.enricher.Enrich(ctx, dishes, func(r enrich.Result, p enrich.Progress) {
		if applyErr != nil {
			return
		}
		if err := s.ApplyImage(ctx, id, generation, r, p); err != nil {
			applyErr = err
			cancel()
		}
	})
	return applyErr
}

// ApplyImage stores one enrichment result. Results for a replaced menu
// are dropped with ErrStale.
func (s *Service) ApplyImage(ctx context.Context, id string, generation int64, r enrich.Result, p enrich.Progress) error {
	_, err := s.store.Update(ctx, id, func(sess *Session) error {
		if sess.Generation != generation {
			return ErrStale
		}
		if r.ImageURL != "" {
			for i := range sess.Catalog {
				if sess.Catalog[i].ID == r.DishID {
					sess.Catalog[i].ImageURL = r.ImageURL
					break
				}
			}
		}
		if p.Completed > sess.Progress.Completed {
			sess.Progress = p
		}
		return nil
	})
	return err
}

func (s *Service) clearBusy(ctx context.Context, id string, started time.Time) {
	_, err := s.store.Update(ctx, id, func(sess *Session) error {
		if !sess.BusySince.Equal(started) {
			return errNoop
		}
		sess.BusySince = time.Time{}
		return nil
	})
	if err != nil && !stderrors.Is(err, errNoop) {
		slog.WarnContext(ctx, "Failed to clear loading flag", "session_id", id, "error", err)
	}
}

// Progress returns the image search progress of the latest batch.
func (s *Service) Progress(ctx context.Context, id string) (enrich.Progress, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return enrich.Progress{}, mapErr(err)
	}
	return sess.Progress, nil
}

// SetQuantity overwrites the quantity of one revealed dish.
func (s *Service) SetQuantity(ctx context.Context, id, dishID string, n int) (View, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		if err := menu.SetQuantity(sess.Revealed(), dishID, n); err != nil {
			return err
		}
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return View{}, mapErr(err)
	}
	return s.view(sess), nil
}

// ResetAll zeroes every quantity.
func (s *Service) ResetAll(ctx context.Context, id string) (View, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		menu.ResetAll(sess.Catalog)
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return View{}, mapErr(err)
	}
	return s.view(sess), nil
}

// Totals sums the revealed dishes.
func (s *Service) Totals(ctx context.Context, id string) (menu.Totals, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return menu.Totals{}, mapErr(err)
	}
	return menu.ComputeTotals(sess.Revealed()), nil
}

// PlaceOrder snapshots the ordered dishes as the session's last order.
// It returns nil and stores nothing when no dish has a quantity.
func (s *Service) PlaceOrder(ctx context.Context, id string) (*Order, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		items := menu.PlaceOrder(sess.Revealed())
		if len(items) == 0 {
			return errNoop
		}
		now := s.now()
		sess.LastOrder = &Order{
			Items:    items,
			Phrase:   menu.OrderPhrase(sess.DisplayLanguage, items),
			PlacedAt: now,
		}
		sess.UpdatedAt = now
		return nil
	})
	if stderrors.Is(err, errNoop) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}

	metrics.OrdersPlacedTotal.Add(ctx, 1)
	slog.InfoContext(ctx, "Order placed", "session_id", id, "items", len(sess.LastOrder.Items))
	return sess.LastOrder, nil
}

// TranslateOrder renders the last order phrase in the menu's language.
func (s *Service) TranslateOrder(ctx context.Context, id string) ([]translate.Phrase, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if sess.LastOrder == nil || sess.LastOrder.Phrase == "" {
		return nil, errors.NewValidationError("no order has been placed", "NO_ORDER", "Choose dishes and place an order first.")
	}
	return s.translator.Translate(ctx, []string{sess.LastOrder.Phrase}, sess.DetectedLanguage)
}

// Suggestions translates the canned phrases into the menu's language.
func (s *Service) Suggestions(ctx context.Context, id string) ([]translate.Phrase, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return s.translator.Suggestions(ctx, sess.DetectedLanguage)
}

// SetAllergies replaces the user's allergen selection. Ids must belong to
// the canonical vocabulary; aliases are accepted and canonicalised.
func (s *Service) SetAllergies(ctx context.Context, id string, ids []string) (View, error) {
	selected := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, raw := range ids {
		canonical, ok := menu.NormalizeAllergenID(raw)
		if !ok {
			return View{}, errors.NewValidationError("unknown allergen id: "+raw, "UNKNOWN_ALLERGEN", "Use ids from GET /api/allergens.")
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		selected = append(selected, canonical)
	}

	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		sess.Allergies = selected
		sess.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return View{}, mapErr(err)
	}
	return s.view(sess), nil
}

func (s *Service) view(sess *Session) View {
	return NewView(sess, sess.Busy(s.now(), s.settings.BusyTimeout))
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	switch {
	case stderrors.Is(err, ErrNotFound):
		return errors.NewNotFoundError("session not found or expired", "SESSION_NOT_FOUND", "Start a new session.")
	case stderrors.Is(err, ErrStale):
		return errors.NewConflictError("the menu was replaced by a newer scan", "STALE_RESULT", "Reload the session.")
	case stderrors.Is(err, menu.ErrDishNotFound):
		return errors.NewNotFoundError("dish not found", "DISH_NOT_FOUND", "Use a dish id from the current menu.")
	case stderrors.Is(err, menu.ErrNotOrderable):
		return errors.NewValidationError("dish is incomplete and cannot be ordered", "DISH_NOT_ORDERABLE", "Ask the staff about this dish directly.")
	}
	return errors.NewInternalError("session store failure", "SESSION_STORE_ERROR", err)
}
