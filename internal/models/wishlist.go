package models

// SortMode selects the ordering of pending items in a projection.
type SortMode string

const (
	SortPriceLow  SortMode = "priceLow"
	SortPriceHigh SortMode = "priceHigh"
	SortNewest    SortMode = "newest"
	SortOldest    SortMode = "oldest"
)

// Valid returns true if m is one of the known sort modes.
func (m SortMode) Valid() bool {
	switch m {
	case SortPriceLow, SortPriceHigh, SortNewest, SortOldest:
		return true
	}
	return false
}

// Item represents a single wishlist entry. ID is assigned from the creation
// time in unix milliseconds and doubles as the creation-order sort key; it is
// unique and strictly increasing within its profile. Optional fields are nil
// when unset; Price is kept as free text and only parsed leniently for
// sorting and stats.
type Item struct {
	ID          int64   `json:"id" db:"id"`
	Text        string  `json:"text" db:"text"`
	Done        bool    `json:"done" db:"done"`
	Link        *string `json:"link" db:"link"`
	Price       *string `json:"price" db:"price"`
	Category    *string `json:"category" db:"category"`
	Notes       *string `json:"notes" db:"notes"`
	CustomImage *string `json:"customImage" db:"custom_image"`
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	c.Link = cloneString(i.Link)
	c.Price = cloneString(i.Price)
	c.Category = cloneString(i.Category)
	c.Notes = cloneString(i.Notes)
	c.CustomImage = cloneString(i.CustomImage)
	return &c
}

// Profile is a named wishlist container. Wishlist holds items in creation
// order, independent of any display ordering.
type Profile struct {
	ID        string  `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	CreatedAt int64   `json:"createdAt" db:"created_at"` // unix milliseconds
	Wishlist  []*Item `json:"wishlist"`
}

// Clone returns a deep copy of the profile and its items.
func (p *Profile) Clone() *Profile {
	c := &Profile{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
	if p.Wishlist != nil {
		c.Wishlist = make([]*Item, len(p.Wishlist))
		for i, it := range p.Wishlist {
			c.Wishlist[i] = it.Clone()
		}
	}
	return c
}

// MaxItemID returns the largest item id in the profile, or 0 when empty.
func (p *Profile) MaxItemID() int64 {
	var max int64
	for _, it := range p.Wishlist {
		if it.ID > max {
			max = it.ID
		}
	}
	return max
}

// State is the unit of persistence: every profile plus which one is active.
// At least one profile always exists and CurrentProfileID always names an
// existing profile; the store maintains both invariants.
type State struct {
	Profiles         map[string]*Profile `json:"profiles"`
	CurrentProfileID string              `json:"currentProfileId"`
}

// Current returns the active profile, or nil if CurrentProfileID is stale.
func (s *State) Current() *Profile {
	if s == nil || s.Profiles == nil {
		return nil
	}
	return s.Profiles[s.CurrentProfileID]
}

// Clone returns a deep copy of the whole state.
func (s *State) Clone() *State {
	c := &State{
		Profiles:         make(map[string]*Profile, len(s.Profiles)),
		CurrentProfileID: s.CurrentProfileID,
	}
	for id, p := range s.Profiles {
		c.Profiles[id] = p.Clone()
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
