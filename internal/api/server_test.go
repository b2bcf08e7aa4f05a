package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/avoskres/wishkeeper/internal/models"
	"github.com/avoskres/wishkeeper/internal/preview"
	"github.com/avoskres/wishkeeper/internal/query"
	"github.com/avoskres/wishkeeper/internal/store"
	"github.com/avoskres/wishkeeper/internal/sync"
)

type memoryRepo struct {
	state *models.State
}

func (m *memoryRepo) Load(ctx context.Context) (*models.State, error) { return m.state, nil }
func (m *memoryRepo) Save(ctx context.Context, st *models.State) error {
	m.state = st
	return nil
}
func (m *memoryRepo) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)

	st := store.New(&memoryRepo{}, l)
	if err := st.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return NewServer(st, sync.NewHub(st, l), preview.NewFetcher(l), l)
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func addItem(t *testing.T, h http.Handler, text, link string) models.Item {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/items", `{"text":"`+text+`","link":"`+link+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add %q: expected 201, got %d (%s)", text, rec.Code, rec.Body.String())
	}
	return decode[models.Item](t, rec)
}

func TestItemEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	t.Run("add rejects empty text", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/items", `{"text":"  "}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	item := addItem(t, h, "Red Shoes", "https://example.com/shoes")
	idPath := "/api/items/" + strconv.FormatInt(item.ID, 10)

	t.Run("projection lists the item", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/items", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[itemsResponse](t, rec)
		if len(resp.Items) != 1 || resp.Items[0].Text != "Red Shoes" {
			t.Fatalf("unexpected items: %+v", resp.Items)
		}
		if resp.View.Sort != models.SortNewest {
			t.Fatalf("expected default sort, got %s", resp.View.Sort)
		}
	})

	t.Run("toggle flips done", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, idPath+"/toggle", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := decode[models.Item](t, rec); !got.Done {
			t.Fatal("expected done after toggle")
		}
	})

	t.Run("toggle of a vanished id is a quiet no-op", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/items/999999/toggle", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("one-shot edit coerces empty category", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, idPath, `{"text":"Blue Shoes","price":"49.90"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		got := decode[models.Item](t, rec)
		if got.Text != "Blue Shoes" || got.Category == nil || *got.Category != "Other" {
			t.Fatalf("unexpected item after edit: %+v", got)
		}
	})

	t.Run("delete then listing is empty", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, idPath, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		resp := decode[itemsResponse](t, doJSON(t, h, http.MethodGet, "/api/items", ""))
		if len(resp.Items) != 0 {
			t.Fatalf("expected empty projection, got %+v", resp.Items)
		}
	})
}

func TestEditSessionEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	item := addItem(t, h, "Book", "")
	idPath := "/api/items/" + strconv.FormatInt(item.ID, 10)

	rec := doJSON(t, h, http.MethodPost, idPath+"/edit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("begin edit: expected 200, got %d", rec.Code)
	}
	draft := decode[store.EditDraft](t, rec)
	if draft.Text != "Book" {
		t.Fatalf("draft must seed from the item, got %+v", draft)
	}

	t.Run("saving an emptied draft keeps the session", func(t *testing.T) {
		doJSON(t, h, http.MethodPut, "/api/edit", `{"text":""}`)
		rec := doJSON(t, h, http.MethodPost, "/api/edit/save", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if rec := doJSON(t, h, http.MethodGet, "/api/edit", ""); rec.Code != http.StatusOK {
			t.Fatalf("session must survive a rejected save, got %d", rec.Code)
		}
	})

	t.Run("corrected draft saves and closes the session", func(t *testing.T) {
		doJSON(t, h, http.MethodPut, "/api/edit", `{"text":"Novel","category":"Media"}`)
		rec := doJSON(t, h, http.MethodPost, "/api/edit/save", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		got := decode[models.Item](t, rec)
		if got.Category == nil || *got.Category != "Media" {
			t.Fatalf("unexpected item: %+v", got)
		}
		if rec := doJSON(t, h, http.MethodGet, "/api/edit", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected closed session, got %d", rec.Code)
		}
	})

	t.Run("save without a session conflicts", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/edit/save", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}

func TestViewAndStatsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	addItem(t, h, "cheap", "")
	dear := addItem(t, h, "dear", "")
	doJSON(t, h, http.MethodPut, "/api/items/"+strconv.FormatInt(dear.ID, 10), `{"text":"dear","price":"100"}`)

	t.Run("invalid sort is rejected", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/view", `{"sort":"alphabetical"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("sort applies to the projection", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/api/view", `{"sort":"priceLow"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		resp := decode[itemsResponse](t, doJSON(t, h, http.MethodGet, "/api/items", ""))
		if resp.Items[0].Text != "dear" || resp.Items[1].Text != "cheap" {
			t.Fatalf("expected priced item first, unpriced last: %+v", resp.Items)
		}
	})

	t.Run("stats cover the full container", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/api/stats", "")
		st := decode[query.Stats](t, rec)
		if st.Total != 2 || st.Remaining != 2 || st.OutstandingTotal != "100.00" {
			t.Fatalf("unexpected stats: %+v", st)
		}
	})
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	t.Run("deleting the only profile conflicts", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, "/api/profiles/current", "")
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("create, activate, delete", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/api/profiles", `{"name":"Gifts"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		created := decode[models.Profile](t, rec)

		resp := decode[profilesResponse](t, doJSON(t, h, http.MethodGet, "/api/profiles", ""))
		if len(resp.Profiles) != 2 || resp.CurrentProfileID != created.ID {
			t.Fatalf("unexpected profiles response: %+v", resp)
		}

		if rec := doJSON(t, h, http.MethodPut, "/api/profiles/nope/activate", ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown profile, got %d", rec.Code)
		}

		if rec := doJSON(t, h, http.MethodDelete, "/api/profiles/current", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		resp = decode[profilesResponse](t, doJSON(t, h, http.MethodGet, "/api/profiles", ""))
		if len(resp.Profiles) != 1 {
			t.Fatalf("expected one remaining profile, got %+v", resp)
		}
	})
}
