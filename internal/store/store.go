// Package store owns the in-memory wishlist state and is the only place it
// is mutated. Every mutation goes through the persistence adapter before the
// change listener fires; persistence failures are reported and counted but
// never roll the in-memory change back, so user edits survive a broken
// backend. All operations are atomic to callers on any goroutine.
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/metrics"
	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/query"
	"github.com/avoskres/wishkeeper/internal/repository"
)

const (
	defaultProfileName = "My Wishlist"
	profileIDPrefix    = "profile_"

	// fallbackCategory is what an emptied category becomes on edit. Once a
	// category has been set it can never return to unset.
	fallbackCategory = "Other"

	persistFailureNotice = "Could not save your wishlist. Your changes are kept in memory."
)

// View is the transient, session-only display state. It is never persisted
// and resets to defaults on every start.
type View struct {
	Search         string          `json:"search"`
	Sort           models.SortMode `json:"sort"`
	ActiveCategory string          `json:"activeCategory"`
	EditingID      int64           `json:"editingId,omitempty"` // 0 when no edit session is open
}

// Store holds the profiles, the active container and the view state.
type Store struct {
	mu     sync.Mutex
	repo   repository.StateRepository
	logger *logrus.Logger
	state  *models.State

	search         string
	sortMode       models.SortMode
	activeCategory string
	draft          *EditDraft

	projection      []*models.Item
	projectionValid bool

	onChange func(*models.State)
	onNotice func(string)

	nowMS func() int64
}

// New creates a Store over the given persistence adapter. Call Bootstrap
// before using it.
func New(repo repository.StateRepository, logger *logrus.Logger) *Store {
	return &Store{
		repo:     repo,
		logger:   logger,
		sortMode: models.SortNewest,
		nowMS:    func() int64 { return time.Now().UnixMilli() },
	}
}

// OnChange registers the listener called with a state snapshot after every
// local mutation. Register before the store is shared across goroutines.
func (s *Store) OnChange(fn func(*models.State)) { s.onChange = fn }

// OnNotice registers the listener for user-visible notices, currently only
// persistence failures.
func (s *Store) OnNotice(fn func(string)) { s.onNotice = fn }

// Bootstrap loads persisted state, or creates and persists a default profile
// on first run. Missing or malformed persisted data counts as a first run.
func (s *Store) Bootstrap(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state == nil {
		id := s.freshProfileID(nil)
		state = &models.State{
			Profiles: map[string]*models.Profile{
				id: {ID: id, Name: defaultProfileName, CreatedAt: s.nowMS()},
			},
			CurrentProfileID: id,
		}
		s.state = state
		s.logger.Infof("No saved wishlist found, created profile %q", defaultProfileName)
		s.persistLocked()
		return nil
	}

	normalize(state)
	s.state = state
	s.logger.Infof("Loaded %d profile(s), active: %s", len(state.Profiles), state.CurrentProfileID)
	return nil
}

// ---------------------------------------------------------------------------
// Item mutations
// ---------------------------------------------------------------------------

// Add appends a new pending item to the active container. Empty text leaves
// the container unchanged.
func (s *Store) Add(text, link string) (*models.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := &models.Item{
		ID:   s.freshItemID(),
		Text: text,
		Link: optional(link),
	}
	profile := s.state.Current()
	profile.Wishlist = append(profile.Wishlist, item)

	metrics.Mutations.WithLabelValues("add").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return item.Clone(), nil
}

// Delete removes the item with the given id from the active container.
// A missing id is a no-op; the id may already be gone via a remote update.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.state.Current()
	for i, it := range profile.Wishlist {
		if it.ID == id {
			profile.Wishlist = append(profile.Wishlist[:i], profile.Wishlist[i+1:]...)
			metrics.Mutations.WithLabelValues("delete").Inc()
			s.invalidateLocked()
			s.persistLocked()
			return true
		}
	}
	return false
}

// ToggleDone flips the done flag on the item with the given id. A missing id
// is a no-op.
func (s *Store) ToggleDone(id int64) (*models.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findLocked(id)
	if item == nil {
		return nil, false
	}
	item.Done = !item.Done

	metrics.Mutations.WithLabelValues("toggle").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return item.Clone(), true
}

// ---------------------------------------------------------------------------
// Edit session
// ---------------------------------------------------------------------------

// BeginEdit opens an edit session for the given item, seeding the draft from
// its current values. At most one session exists; opening a new one replaces
// any previous draft. Returns false when the id does not exist.
func (s *Store) BeginEdit(id int64) (EditDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findLocked(id)
	if item == nil {
		return EditDraft{}, false
	}
	s.draft = draftFor(id, EditFields{
		Text:        item.Text,
		Category:    deref(item.Category),
		Link:        deref(item.Link),
		Price:       deref(item.Price),
		CustomImage: deref(item.CustomImage),
		Notes:       deref(item.Notes),
	})
	return *s.draft, true
}

// Draft returns the open edit draft, if any.
func (s *Store) Draft() (EditDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return EditDraft{}, false
	}
	return *s.draft, true
}

// UpdateDraft replaces the draft's field values with the ones forwarded by
// the presentation layer.
func (s *Store) UpdateDraft(f EditFields) (EditDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return EditDraft{}, ErrNoEditSession
	}
	s.draft.EditFields = f
	return *s.draft, nil
}

// SaveEdit commits the open draft to its item. Text trimming to empty fails
// with ErrEmptyText and keeps the session open for correction; an emptied
// category becomes the fallback label; other emptied fields become unset.
// If the item vanished since the session opened the commit is a silent
// no-op. The session closes on anything but a validation error.
func (s *Store) SaveEdit() (*models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return nil, ErrNoEditSession
	}

	text := strings.TrimSpace(s.draft.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	item := s.findLocked(s.draft.ItemID)
	if item == nil {
		s.draft = nil
		return nil, nil
	}

	category := strings.TrimSpace(s.draft.Category)
	if category == "" {
		category = fallbackCategory
	}
	item.Text = text
	item.Category = &category
	item.Link = optional(s.draft.Link)
	item.Price = optional(s.draft.Price)
	item.CustomImage = optional(s.draft.CustomImage)
	item.Notes = optional(s.draft.Notes)

	s.draft = nil
	metrics.Mutations.WithLabelValues("edit").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return item.Clone(), nil
}

// CancelEdit discards the open draft, if any.
func (s *Store) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// ---------------------------------------------------------------------------
// View state and projection
// ---------------------------------------------------------------------------

// SetSearch updates the search text.
func (s *Store) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = q
	s.invalidateLocked()
}

// SetSort selects the ordering for pending items.
func (s *Store) SetSort(mode models.SortMode) error {
	if !mode.Valid() {
		return ErrInvalidSortMode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortMode = mode
	s.invalidateLocked()
	return nil
}

// ToggleCategory activates the category filter, or clears it when the given
// category is already active.
func (s *Store) ToggleCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeCategory == category {
		s.activeCategory = ""
	} else {
		s.activeCategory = category
	}
	s.invalidateLocked()
}

// View returns the current transient display state.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{Search: s.search, Sort: s.sortMode, ActiveCategory: s.activeCategory}
	if s.draft != nil {
		v.EditingID = s.draft.ItemID
	}
	return v
}

// Projection returns the active container filtered and ordered for display,
// plus the category set of the unfiltered container. The result is cached
// until a mutation or view change invalidates it.
func (s *Store) Projection() ([]*models.Item, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := s.state.Current()
	if !s.projectionValid {
		projected := query.Project(profile.Wishlist, query.Params{
			Search:   s.search,
			Category: s.activeCategory,
			Sort:     s.sortMode,
		})
		s.projection = make([]*models.Item, len(projected))
		for i, it := range projected {
			s.projection[i] = it.Clone()
		}
		s.projectionValid = true
	}

	items := make([]*models.Item, len(s.projection))
	copy(items, s.projection)
	return items, query.Categories(profile.Wishlist)
}

// Stats aggregates counts and the outstanding total over the full active
// container, ignoring search and filters.
func (s *Store) Stats() query.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.Aggregate(s.state.Current().Wishlist)
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

// CreateProfile creates an empty profile and makes it active.
func (s *Store) CreateProfile(name string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshProfileID(s.state.Profiles)
	profile := &models.Profile{ID: id, Name: name, CreatedAt: s.nowMS()}
	s.state.Profiles[id] = profile
	s.state.CurrentProfileID = id
	s.draft = nil

	metrics.Mutations.WithLabelValues("profile_create").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return profile.Clone(), nil
}

// SwitchProfile makes the given profile active. Unknown ids are a no-op.
func (s *Store) SwitchProfile(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Profiles[id]; !ok {
		return false
	}
	s.state.CurrentProfileID = id
	s.draft = nil

	metrics.Mutations.WithLabelValues("profile_switch").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return true
}

// DeleteProfile removes the active profile and switches to the remaining
// profile with the smallest id. Deleting the last profile is refused.
func (s *Store) DeleteProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Profiles) <= 1 {
		return ErrLastProfile
	}
	delete(s.state.Profiles, s.state.CurrentProfileID)
	s.state.CurrentProfileID = smallestID(s.state.Profiles)
	s.draft = nil

	metrics.Mutations.WithLabelValues("profile_delete").Inc()
	s.invalidateLocked()
	s.persistLocked()
	return nil
}

// Profiles returns all profiles ordered by creation time.
func (s *Store) Profiles() []*models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Profile, 0, len(s.state.Profiles))
	for _, p := range s.state.Profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CurrentProfile returns a copy of the active profile.
func (s *Store) CurrentProfile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current().Clone()
}

// ---------------------------------------------------------------------------
// Snapshots and remote updates
// ---------------------------------------------------------------------------

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() *models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Replace swaps in a state received from another device and persists it,
// without firing the change listener; rebroadcasting is the sync layer's
// call. Snapshots carrying no profiles are ignored rather than wiping local
// state. Any open edit session is discarded since its item may be gone.
func (s *Store) Replace(state *models.State) bool {
	if state == nil || len(state.Profiles) == 0 {
		return false
	}
	normalize(state)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state.Clone()
	s.draft = nil
	s.invalidateLocked()
	s.saveLocked()
	return true
}

// ---------------------------------------------------------------------------
// Internals (call with s.mu held)
// ---------------------------------------------------------------------------

func (s *Store) findLocked(id int64) *models.Item {
	for _, it := range s.state.Current().Wishlist {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *Store) invalidateLocked() {
	s.projection = nil
	s.projectionValid = false
}

// persistLocked saves the state and then notifies the change listener. Save
// failures are reported, not propagated: the in-memory state is already
// mutated and stays that way.
func (s *Store) persistLocked() {
	s.saveLocked()
	if s.onChange != nil {
		s.onChange(s.state.Clone())
	}
}

func (s *Store) saveLocked() {
	if err := s.repo.Save(context.Background(), s.state.Clone()); err != nil {
		metrics.PersistFailures.Inc()
		s.logger.WithError(err).Error("Failed to persist wishlist state")
		if s.onNotice != nil {
			s.onNotice(persistFailureNotice)
		}
	}
}

// freshItemID derives an id from the clock, bumping past the container's
// largest id when the clock has not advanced, so ids stay strictly
// increasing in creation order.
func (s *Store) freshItemID() int64 {
	id := s.nowMS()
	if max := s.state.Current().MaxItemID(); id <= max {
		id = max + 1
	}
	return id
}

func (s *Store) freshProfileID(existing map[string]*models.Profile) string {
	ms := s.nowMS()
	for {
		id := profileIDPrefix + strconv.FormatInt(ms, 10)
		if _, ok := existing[id]; !ok {
			return id
		}
		ms++
	}
}

// normalize repairs a loaded or received state whose active profile pointer
// is stale.
func normalize(state *models.State) {
	if state.Current() == nil {
		state.CurrentProfileID = smallestID(state.Profiles)
	}
}

func smallestID(profiles map[string]*models.Profile) string {
	var min string
	for id := range profiles {
		if min == "" || id < min {
			min = id
		}
	}
	return min
}

// optional trims a form value, mapping empty to unset.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
