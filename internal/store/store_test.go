package store

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/models"
)

// fakeRepo records saves and serves a canned load result.
type fakeRepo struct {
	loadState *models.State
	saved     []*models.State
	saveErr   error
}

func (f *fakeRepo) Load(ctx context.Context) (*models.State, error) { return f.loadState, nil }
func (f *fakeRepo) Save(ctx context.Context, st *models.State) error {
	f.saved = append(f.saved, st)
	return f.saveErr
}
func (f *fakeRepo) Close() error { return nil }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// newTestStore returns a bootstrapped store with a deterministic clock that
// advances one millisecond per call.
func newTestStore(t *testing.T) (*Store, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{}
	s := New(repo, testLogger())
	var clock int64 = 1000
	s.nowMS = func() int64 { clock++; return clock }
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return s, repo
}

func TestBootstrapFirstRun(t *testing.T) {
	s, repo := newTestStore(t)

	profiles := s.Profiles()
	if len(profiles) != 1 {
		t.Fatalf("expected one default profile, got %d", len(profiles))
	}
	if profiles[0].Name != "My Wishlist" {
		t.Fatalf("unexpected default profile name %q", profiles[0].Name)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected first run to persist, got %d saves", len(repo.saved))
	}

	v := s.View()
	if v.Search != "" || v.Sort != models.SortNewest || v.ActiveCategory != "" || v.EditingID != 0 {
		t.Fatalf("view state must start at defaults, got %+v", v)
	}
}

func TestAdd(t *testing.T) {
	t.Run("whitespace-only text changes nothing", func(t *testing.T) {
		s, repo := newTestStore(t)
		saves := len(repo.saved)

		if _, err := s.Add("   ", ""); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
		if st := s.Stats(); st.Total != 0 {
			t.Fatalf("container must stay empty, got %d items", st.Total)
		}
		if len(repo.saved) != saves {
			t.Fatal("rejected add must not persist")
		}
	})

	t.Run("trims text and link, empty link is unset", func(t *testing.T) {
		s, _ := newTestStore(t)

		item, err := s.Add("  Red Shoes  ", "  ")
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if item.Text != "Red Shoes" {
			t.Fatalf("expected trimmed text, got %q", item.Text)
		}
		if item.Link != nil || item.Price != nil || item.Category != nil || item.Notes != nil || item.CustomImage != nil {
			t.Fatalf("optional fields must start unset: %+v", item)
		}
		if item.Done {
			t.Fatal("new items start pending")
		}
	})

	t.Run("ids are unique and strictly increasing", func(t *testing.T) {
		s, _ := newTestStore(t)
		s.nowMS = func() int64 { return 500 } // frozen clock

		var last int64
		for i := 0; i < 5; i++ {
			item, err := s.Add("thing", "")
			if err != nil {
				t.Fatalf("Add: %v", err)
			}
			if item.ID <= last {
				t.Fatalf("id %d not greater than previous %d", item.ID, last)
			}
			last = item.ID
		}
	})
}

func TestDelete(t *testing.T) {
	s, repo := newTestStore(t)
	a, _ := s.Add("a", "")
	b, _ := s.Add("b", "")

	t.Run("missing id is a no-op", func(t *testing.T) {
		saves := len(repo.saved)
		if s.Delete(999) {
			t.Fatal("expected false for unknown id")
		}
		if len(repo.saved) != saves {
			t.Fatal("no-op delete must not persist")
		}
	})

	t.Run("removes exactly one item", func(t *testing.T) {
		if !s.Delete(a.ID) {
			t.Fatal("expected delete to succeed")
		}
		items, _ := s.Projection()
		if len(items) != 1 || items[0].ID != b.ID {
			t.Fatalf("expected only item %d to remain, got %v", b.ID, items)
		}
	})
}

func TestToggleDone(t *testing.T) {
	s, _ := newTestStore(t)
	item, _ := s.Add("a", "https://example.com")

	if _, ok := s.ToggleDone(999); ok {
		t.Fatal("unknown id must be a no-op")
	}

	once, ok := s.ToggleDone(item.ID)
	if !ok || !once.Done {
		t.Fatalf("expected done after first toggle, got %+v", once)
	}

	twice, ok := s.ToggleDone(item.ID)
	if !ok || twice.Done {
		t.Fatalf("expected pending after second toggle, got %+v", twice)
	}
	if twice.Text != item.Text || deref(twice.Link) != deref(item.Link) {
		t.Fatal("toggle must leave other fields unchanged")
	}
}

func TestEditSession(t *testing.T) {
	t.Run("draft seeds from the item", func(t *testing.T) {
		s, _ := newTestStore(t)
		item, _ := s.Add("Book", "https://example.com/book")

		draft, ok := s.BeginEdit(item.ID)
		if !ok {
			t.Fatal("expected edit session to open")
		}
		if draft.Text != "Book" || draft.Link != "https://example.com/book" || draft.Category != "" {
			t.Fatalf("unexpected draft %+v", draft)
		}
		if v := s.View(); v.EditingID != item.ID {
			t.Fatalf("expected editing id %d, got %d", item.ID, v.EditingID)
		}
	})

	t.Run("empty text is rejected and the session stays open", func(t *testing.T) {
		s, _ := newTestStore(t)
		item, _ := s.Add("Book", "")

		s.BeginEdit(item.ID)
		s.UpdateDraft(EditFields{Text: "   "})
		if _, err := s.SaveEdit(); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("expected ErrEmptyText, got %v", err)
		}
		if _, open := s.Draft(); !open {
			t.Fatal("session must stay open for correction")
		}

		items, _ := s.Projection()
		if items[0].Text != "Book" {
			t.Fatalf("prior text must survive a rejected edit, got %q", items[0].Text)
		}
	})

	t.Run("empty category coerces to Other, other empties unset", func(t *testing.T) {
		s, _ := newTestStore(t)
		item, _ := s.Add("Book", "https://example.com")

		s.BeginEdit(item.ID)
		s.UpdateDraft(EditFields{Text: " Novel ", Price: " 12.50 "})
		got, err := s.SaveEdit()
		if err != nil {
			t.Fatalf("SaveEdit: %v", err)
		}
		if got.Text != "Novel" {
			t.Fatalf("expected trimmed text, got %q", got.Text)
		}
		if got.Category == nil || *got.Category != "Other" {
			t.Fatalf("expected category Other, got %v", got.Category)
		}
		if got.Price == nil || *got.Price != "12.50" {
			t.Fatalf("expected trimmed price, got %v", got.Price)
		}
		if got.Link != nil || got.Notes != nil || got.CustomImage != nil {
			t.Fatalf("emptied fields must become unset: %+v", got)
		}
		if _, open := s.Draft(); open {
			t.Fatal("session must close after a successful save")
		}
	})

	t.Run("vanished item closes the session silently", func(t *testing.T) {
		s, _ := newTestStore(t)
		item, _ := s.Add("Book", "")

		s.BeginEdit(item.ID)
		s.Delete(item.ID)
		got, err := s.SaveEdit()
		if err != nil || got != nil {
			t.Fatalf("expected silent no-op, got %v, %v", got, err)
		}
		if _, open := s.Draft(); open {
			t.Fatal("session must be closed")
		}
	})
}

func TestProfiles(t *testing.T) {
	t.Run("create rejects blank names", func(t *testing.T) {
		s, _ := newTestStore(t)
		if _, err := s.CreateProfile("  "); !errors.Is(err, ErrEmptyName) {
			t.Fatalf("expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("create activates the new profile", func(t *testing.T) {
		s, _ := newTestStore(t)
		p, err := s.CreateProfile("Gifts")
		if err != nil {
			t.Fatalf("CreateProfile: %v", err)
		}
		if s.CurrentProfile().ID != p.ID {
			t.Fatal("new profile must become active")
		}
		if st := s.Stats(); st.Total != 0 {
			t.Fatal("new profile starts empty")
		}
	})

	t.Run("items live in their own container", func(t *testing.T) {
		s, _ := newTestStore(t)
		first := s.CurrentProfile()
		s.Add("only in first", "")

		s.CreateProfile("Second")
		if st := s.Stats(); st.Total != 0 {
			t.Fatal("second profile must not see first profile's items")
		}

		if !s.SwitchProfile(first.ID) {
			t.Fatal("switch back failed")
		}
		if st := s.Stats(); st.Total != 1 {
			t.Fatal("first profile's items must survive the round trip")
		}
	})

	t.Run("switching to an unknown id is a no-op", func(t *testing.T) {
		s, _ := newTestStore(t)
		current := s.CurrentProfile().ID
		if s.SwitchProfile("profile_nope") {
			t.Fatal("expected false")
		}
		if s.CurrentProfile().ID != current {
			t.Fatal("active profile must not change")
		}
	})

	t.Run("deleting the last profile is refused", func(t *testing.T) {
		s, repo := newTestStore(t)
		s.Add("keep me", "")
		saves := len(repo.saved)

		if err := s.DeleteProfile(); !errors.Is(err, ErrLastProfile) {
			t.Fatalf("expected ErrLastProfile, got %v", err)
		}
		if st := s.Stats(); st.Total != 1 {
			t.Fatal("items must survive a refused delete")
		}
		if len(repo.saved) != saves {
			t.Fatal("refused delete must not persist")
		}
	})

	t.Run("delete switches to the smallest remaining id", func(t *testing.T) {
		s, _ := newTestStore(t)
		first := s.CurrentProfile()
		s.CreateProfile("B")
		third, _ := s.CreateProfile("C")

		if err := s.DeleteProfile(); err != nil { // deletes C, the active one
			t.Fatalf("DeleteProfile: %v", err)
		}
		if got := s.CurrentProfile().ID; got != first.ID {
			t.Fatalf("expected successor %s, got %s", first.ID, got)
		}
		for _, p := range s.Profiles() {
			if p.ID == third.ID {
				t.Fatal("deleted profile still present")
			}
		}
	})
}

func TestPersistFailureKeepsState(t *testing.T) {
	s, repo := newTestStore(t)
	repo.saveErr = errors.New("disk full")

	var notice string
	s.OnNotice(func(msg string) { notice = msg })

	if _, err := s.Add("still here", ""); err != nil {
		t.Fatalf("Add must not surface persistence errors: %v", err)
	}
	if st := s.Stats(); st.Total != 1 {
		t.Fatal("in-memory state must be retained on save failure")
	}
	if notice == "" {
		t.Fatal("expected a user-visible notice")
	}
}

func TestReplace(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("local", "")

	var changes int
	s.OnChange(func(*models.State) { changes++ })

	t.Run("empty snapshots are ignored", func(t *testing.T) {
		if s.Replace(nil) || s.Replace(&models.State{}) {
			t.Fatal("empty snapshot must not replace state")
		}
		if st := s.Stats(); st.Total != 1 {
			t.Fatal("local state must survive")
		}
	})

	t.Run("replaces state without firing the change listener", func(t *testing.T) {
		remote := &models.State{
			Profiles: map[string]*models.Profile{
				"profile_42": {ID: "profile_42", Name: "Remote", CreatedAt: 42,
					Wishlist: []*models.Item{{ID: 1, Text: "remote item"}}},
			},
			CurrentProfileID: "profile_missing", // stale pointer gets repaired
		}
		if !s.Replace(remote) {
			t.Fatal("expected replace to apply")
		}
		if changes != 0 {
			t.Fatal("Replace must not rebroadcast through OnChange")
		}
		if got := s.CurrentProfile(); got.ID != "profile_42" {
			t.Fatalf("expected repaired active profile, got %s", got.ID)
		}
		items, _ := s.Projection()
		if len(items) != 1 || items[0].Text != "remote item" {
			t.Fatalf("unexpected projection after replace: %v", items)
		}
	})
}

func TestProjectionUsesViewState(t *testing.T) {
	s, _ := newTestStore(t)
	cheap, _ := s.Add("cheap", "")
	mid, _ := s.Add("mid", "")
	dear, _ := s.Add("dear", "")

	for id, price := range map[int64]string{cheap.ID: "1", mid.ID: "10", dear.ID: "100"} {
		s.BeginEdit(id)
		d, _ := s.Draft()
		d.Price = price
		s.UpdateDraft(d.EditFields)
		if _, err := s.SaveEdit(); err != nil {
			t.Fatalf("SaveEdit: %v", err)
		}
	}

	if err := s.SetSort(models.SortPriceHigh); err != nil {
		t.Fatalf("SetSort: %v", err)
	}
	items, cats := s.Projection()
	if items[0].ID != dear.ID || items[2].ID != cheap.ID {
		t.Fatalf("unexpected priceHigh order: %v", items)
	}
	if len(cats) != 1 || cats[0] != "Other" {
		t.Fatalf("expected category set [Other], got %v", cats)
	}

	s.SetSearch("MID")
	items, _ = s.Projection()
	if len(items) != 1 || items[0].ID != mid.ID {
		t.Fatalf("expected case-insensitive match on %d, got %v", mid.ID, items)
	}

	s.SetSearch("")
	s.ToggleCategory("Other")
	items, _ = s.Projection()
	if len(items) != 3 {
		t.Fatalf("category filter should match all, got %v", items)
	}
	s.ToggleCategory("Other") // toggling again clears the filter
	if v := s.View(); v.ActiveCategory != "" {
		t.Fatalf("expected cleared category, got %q", v.ActiveCategory)
	}

	if err := s.SetSort("alphabetical"); !errors.Is(err, ErrInvalidSortMode) {
		t.Fatalf("expected ErrInvalidSortMode, got %v", err)
	}
}
