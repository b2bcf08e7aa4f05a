package store

// EditFields carries the raw field values of an edit form. Values are taken
// as entered; trimming and empty-value coercion happen when the draft is
// committed.
type EditFields struct {
	Text        string `json:"text"`
	Category    string `json:"category"`
	Link        string `json:"link"`
	Price       string `json:"price"`
	CustomImage string `json:"customImage"`
	Notes       string `json:"notes"`
}

// EditDraft is the transient state of the one edit session the store allows
// at a time. The presentation layer only renders and forwards it; the store
// owns it.
type EditDraft struct {
	ItemID int64 `json:"itemId"`
	EditFields
}

// draftFor seeds a draft from the item's current values.
func draftFor(itemID int64, f EditFields) *EditDraft {
	return &EditDraft{ItemID: itemID, EditFields: f}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
