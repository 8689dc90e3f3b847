package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hylla/animebridge/internal/diff"
	"github.com/hylla/animebridge/internal/domain"
	"github.com/hylla/animebridge/internal/normalize"
	"github.com/hylla/animebridge/internal/prompt"
	"github.com/hylla/animebridge/internal/render"
)

// Catalog query defaults.
const (
	DefaultHistoryLimit     = 50
	DefaultFavoritesLimit   = 10
	DefaultListLimit        = 1000
	DefaultCooldown         = 5 * time.Minute
	DefaultBaselineLookback = 24 * time.Hour
)

var (
	historyFields   = []string{"list_status", "num_episodes", "mean", "rank", "genres", "studios", "alternative_titles", "list_updated_at", "updated_at"}
	listFields      = []string{"list_status", "num_episodes", "mean", "media_type", "list_updated_at", "updated_at"}
	favoritesFields = []string{"list_status", "num_episodes", "mean"}
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Username         string
	ClientID         string
	HistoryLimit     int
	FavoritesLimit   int
	ListLimit        int
	PlanPromptLimit  int
	Cooldown         time.Duration
	BaselineLookback time.Duration
	Locale           string
	Location         *time.Location
}

// IDGenerator returns unique identifiers for new pending reports.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service orchestrates fetch, diff, and the pending-report lifecycle.
type Service struct {
	catalog Catalog
	repo    Repository
	idGen   IDGenerator
	clock   Clock
	cfg     ServiceConfig
	logger  Logger

	flight singleflight.Group
	// mu serializes read-then-write cycles over the state bag.
	mu sync.Mutex
}

// NewService constructs a new value for this package.
func NewService(catalog Catalog, repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig, logger Logger) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.FavoritesLimit <= 0 {
		cfg.FavoritesLimit = DefaultFavoritesLimit
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = DefaultListLimit
	}
	if cfg.PlanPromptLimit <= 0 {
		cfg.PlanPromptLimit = prompt.DefaultPlanLimit
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.BaselineLookback <= 0 {
		cfg.BaselineLookback = DefaultBaselineLookback
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.Locale = render.ResolveLocale(cfg.Locale, render.LocaleEnglish)
	return &Service{
		catalog: catalog,
		repo:    repo,
		idGen:   idGen,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Locale returns the resolved output locale.
func (s *Service) Locale() string {
	return s.cfg.Locale
}

// SyncOutcome classifies what one sync cycle did.
type SyncOutcome string

// SyncOutcome values.
const (
	SyncChanges     SyncOutcome = "changes"
	SyncInitialized SyncOutcome = "initialized"
	SyncUnchanged   SyncOutcome = "unchanged"
	SyncSkipped     SyncOutcome = "skipped"
)

// SyncOptions holds input values for sync operations.
type SyncOptions struct {
	// Force bypasses the cooldown.
	Force bool
}

// SyncResult describes one sync cycle.
type SyncResult struct {
	Outcome    SyncOutcome           `json:"outcome"`
	Pending    *domain.PendingReport `json:"pending,omitempty"`
	Report     domain.DiffReport     `json:"report"`
	SyncedAt   time.Time             `json:"synced_at"`
	RetryAfter time.Duration         `json:"retry_after,omitempty"`
	// Shared is true when the call joined a cycle already in flight.
	Shared bool `json:"shared,omitempty"`
}

// syncCycleTimeout bounds one shared sync cycle.
const syncCycleTimeout = 2 * time.Minute

// Sync fetches the user's lists, diffs them against the committed snapshot,
// and stores a pending report when anything changed. Overlapping calls share
// one in-flight cycle. The cycle outlives the caller that started it; each
// caller stops waiting when its own ctx is done.
func (s *Service) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	ch := s.flight.DoChan("sync", func() (any, error) {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), syncCycleTimeout)
		defer cancel()
		return s.syncOnce(cycleCtx, opts)
	})
	select {
	case <-ctx.Done():
		return SyncResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return SyncResult{}, res.Err
		}
		out := res.Val.(SyncResult)
		out.Shared = res.Shared
		return out, nil
	}
}

func (s *Service) syncOnce(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if strings.TrimSpace(s.cfg.Username) == "" || strings.TrimSpace(s.cfg.ClientID) == "" {
		return SyncResult{}, ErrCredentialsMissing
	}

	now := s.clock()
	if !opts.Force && s.cfg.Cooldown > 0 {
		bag, err := s.repo.Load(ctx, []string{KeyLastSynced})
		if err != nil {
			return SyncResult{}, fmt.Errorf("load sync state: %w", err)
		}
		lastSynced, err := decodeTime(bag, KeyLastSynced)
		if err != nil {
			return SyncResult{}, err
		}
		if lastSynced != nil {
			if elapsed := now.Sub(*lastSynced); elapsed < s.cfg.Cooldown {
				wait := s.cfg.Cooldown - elapsed
				s.logger.Debug("sync skipped, cooldown active", "retry_after", wait.Round(time.Second))
				return SyncResult{Outcome: SyncSkipped, SyncedAt: *lastSynced, RetryAfter: wait}, nil
			}
		}
	}

	lists, err := s.fetchLists(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if err := normalize.ValidateUnique(lists.history); err != nil {
		s.logger.Warn("history snapshot has duplicate ids", "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bag, err := s.repo.Load(ctx, []string{KeyLastSnapshot, KeyLastSnapshotDate})
	if err != nil {
		return SyncResult{}, fmt.Errorf("load snapshot: %w", err)
	}
	st, err := decodeState(bag)
	if err != nil {
		return SyncResult{}, err
	}

	cutoff := st.LastSnapshotDate
	if cutoff == nil && len(st.LastSnapshot) > 0 {
		fallback := now.Add(-s.cfg.BaselineLookback)
		cutoff = &fallback
	}
	report := diff.Compute(st.LastSnapshot, lists.history, cutoff, diff.Options{Locale: s.cfg.Locale})

	updates := Bag{}
	if err := putTime(updates, KeyLastSynced, now); err != nil {
		return SyncResult{}, err
	}
	for key, list := range map[string]domain.Snapshot{
		KeyWatching:    lists.watching,
		KeyPlanToWatch: lists.planToWatch,
		KeyFavorites:   lists.favorites,
		KeyHistory:     lists.history,
		KeyLatestFetch: lists.history,
	} {
		if err := put(updates, key, list); err != nil {
			return SyncResult{}, err
		}
	}

	result := SyncResult{Report: report, SyncedAt: now}
	switch {
	case report.HasChanges:
		pending := domain.PendingReport{
			ID:        s.idGen(),
			Report:    report,
			Locale:    s.cfg.Locale,
			CreatedAt: now.UTC(),
		}
		if err := put(updates, KeyPendingChanges, pending); err != nil {
			return SyncResult{}, err
		}
		result.Outcome = SyncChanges
		result.Pending = &pending
	case len(st.LastSnapshot) == 0:
		if err := put(updates, KeyLastSnapshot, lists.history); err != nil {
			return SyncResult{}, err
		}
		if err := putTime(updates, KeyLastSnapshotDate, now); err != nil {
			return SyncResult{}, err
		}
		updates[KeyPendingChanges] = nil
		result.Outcome = SyncInitialized
	default:
		updates[KeyPendingChanges] = nil
		result.Outcome = SyncUnchanged
	}

	if err := s.repo.Save(ctx, updates); err != nil {
		return SyncResult{}, fmt.Errorf("save sync state: %w", err)
	}
	s.logger.Info("sync complete",
		"outcome", result.Outcome,
		"new_entries", len(report.NewEntries),
		"updates", len(report.Updates),
		"history", len(lists.history),
	)
	return result, nil
}

// fetchedLists holds one cycle's normalized catalog lists.
type fetchedLists struct {
	history     domain.Snapshot
	watching    domain.Snapshot
	planToWatch domain.Snapshot
	favorites   domain.Snapshot
}

func (s *Service) fetchLists(ctx context.Context) (fetchedLists, error) {
	fetch := func(q ListQuery) (domain.Snapshot, error) {
		q.User = s.cfg.Username
		raw, err := s.catalog.FetchList(ctx, q, s.cfg.ClientID)
		if err != nil {
			return nil, err
		}
		return normalize.Items(raw, s.cfg.Location), nil
	}

	var (
		out fetchedLists
		err error
	)
	if out.history, err = fetch(ListQuery{Sort: "list_updated_at", Limit: s.cfg.HistoryLimit, Fields: historyFields}); err != nil {
		return fetchedLists{}, fmt.Errorf("fetch history: %w", err)
	}
	if out.watching, err = fetch(ListQuery{Status: domain.StatusWatching, Limit: s.cfg.ListLimit, Fields: listFields}); err != nil {
		return fetchedLists{}, fmt.Errorf("fetch watching list: %w", err)
	}
	if out.planToWatch, err = fetch(ListQuery{Status: domain.StatusPlanToWatch, Limit: s.cfg.ListLimit, Fields: listFields}); err != nil {
		return fetchedLists{}, fmt.Errorf("fetch plan to watch list: %w", err)
	}
	out.favorites, err = fetch(ListQuery{Status: domain.StatusCompleted, Sort: "list_score", Limit: s.cfg.FavoritesLimit, Fields: favoritesFields})
	if err != nil {
		s.logger.Warn("favorites unavailable, continuing without them", "err", err)
		out.favorites = domain.Snapshot{}
	}
	return out, nil
}

// Pending returns the stored pending report, if any.
func (s *Service) Pending(ctx context.Context) (domain.PendingReport, bool, error) {
	st, err := s.load(ctx, KeyPendingChanges)
	if err != nil {
		return domain.PendingReport{}, false, err
	}
	if st.Pending == nil {
		return domain.PendingReport{}, false, nil
	}
	return *st.Pending, true, nil
}

// ListView renders the pending report for display. An empty locale uses the
// report's own locale.
func (s *Service) ListView(ctx context.Context, locale string) ([]render.DisplayLine, error) {
	pending, ok, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []render.DisplayLine{}, nil
	}
	if strings.TrimSpace(locale) == "" {
		locale = pending.Locale
	}
	return render.ListView(pending.Report, locale), nil
}

// ConsumeResult describes one committed pending report.
type ConsumeResult struct {
	Report     domain.PendingReport `json:"report"`
	Prompt     string               `json:"prompt"`
	ConsumedAt time.Time            `json:"consumed_at"`
}

// Consume renders the pending report into a diff prompt and commits it: the
// latest fetch becomes the snapshot, the cutoff advances to now, and the
// pending report is cleared. reportID must match the pending report.
func (s *Service) Consume(ctx context.Context, reportID string) (ConsumeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load(ctx, KeyPendingChanges, KeyLatestFetch)
	if err != nil {
		return ConsumeResult{}, err
	}
	if st.Pending == nil {
		return ConsumeResult{}, ErrNoPendingReport
	}
	if strings.TrimSpace(reportID) != st.Pending.ID {
		return ConsumeResult{}, fmt.Errorf("%w: %q", ErrReportMismatch, reportID)
	}

	now := s.clock()
	updates := Bag{KeyPendingChanges: nil}
	if st.LatestFetch != nil {
		if err := put(updates, KeyLastSnapshot, st.LatestFetch); err != nil {
			return ConsumeResult{}, err
		}
	}
	if err := putTime(updates, KeyLastSnapshotDate, now); err != nil {
		return ConsumeResult{}, err
	}
	if err := s.repo.CommitReport(ctx, updates, domain.NewConsumedReport(*st.Pending, now)); err != nil {
		return ConsumeResult{}, fmt.Errorf("commit report: %w", err)
	}

	s.logger.Info("pending report consumed", "report_id", st.Pending.ID)
	return ConsumeResult{
		Report:     *st.Pending,
		Prompt:     prompt.DiffPrompt(st.Pending.Report.SummaryText, st.Pending.Locale),
		ConsumedAt: now.UTC(),
	}, nil
}

// ContextPrompt renders the full profile prompt from stored lists.
func (s *Service) ContextPrompt(ctx context.Context) (string, error) {
	st, err := s.load(ctx, KeyWatching, KeyFavorites, KeyHistory)
	if err != nil {
		return "", err
	}
	return prompt.ContextPrompt(prompt.ContextInput{
		Watching:  st.Watching,
		Favorites: st.Favorites,
		History:   st.History,
	}, s.cfg.Locale), nil
}

// PlanToWatchPrompt renders the stored plan-to-watch list. A limit <= 0 uses
// the configured default.
func (s *Service) PlanToWatchPrompt(ctx context.Context, limit int) (string, error) {
	st, err := s.load(ctx, KeyPlanToWatch)
	if err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = s.cfg.PlanPromptLimit
	}
	return prompt.PlanToWatchPrompt(st.PlanToWatch, limit, s.cfg.Locale), nil
}

// Respond resolves a chat message into the text to hand to the assistant:
// chat commands get their context block, a pending report is consumed and
// attached, and anything else passes through unchanged.
func (s *Service) Respond(ctx context.Context, message string) (string, error) {
	cmd := prompt.ParseCommand(message)
	switch cmd.Kind {
	case prompt.CommandPlan:
		block, err := s.PlanToWatchPrompt(ctx, cmd.Limit)
		if err != nil {
			return "", err
		}
		return prompt.Compose(cmd.Message, block), nil
	case prompt.CommandContext:
		block, err := s.ContextPrompt(ctx)
		if err != nil {
			return "", err
		}
		return prompt.Compose(cmd.Message, block), nil
	}

	pending, ok, err := s.Pending(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return message, nil
	}
	res, err := s.Consume(ctx, pending.ID)
	if err != nil {
		return "", err
	}
	return prompt.Compose(message, res.Prompt), nil
}

// Reset clears the committed snapshot, cutoff, and pending state.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, StateKeys()); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	s.logger.Info("state reset")
	return nil
}

// History lists consumed reports, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.ConsumedReport, error) {
	return s.repo.ListConsumedReports(ctx, limit)
}

// StatusReport summarizes stored state.
type StatusReport struct {
	Dirty            bool       `json:"dirty"`
	PendingID        string     `json:"pending_id,omitempty"`
	SnapshotSize     int        `json:"snapshot_size"`
	LastSnapshotDate *time.Time `json:"last_snapshot_date,omitempty"`
	LastSynced       *time.Time `json:"last_synced,omitempty"`
}

// Status reports the dirty badge and sync bookkeeping.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	st, err := s.load(ctx, KeyPendingChanges, KeyLastSnapshot, KeyLastSnapshotDate, KeyLastSynced)
	if err != nil {
		return StatusReport{}, err
	}
	out := StatusReport{
		SnapshotSize:     len(st.LastSnapshot),
		LastSnapshotDate: st.LastSnapshotDate,
		LastSynced:       st.LastSynced,
	}
	if st.Pending != nil && st.Pending.Report.HasChanges {
		out.Dirty = true
		out.PendingID = st.Pending.ID
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, keys ...string) (state, error) {
	bag, err := s.repo.Load(ctx, keys)
	if err != nil {
		return state{}, fmt.Errorf("load state: %w", err)
	}
	return decodeState(bag)
}
