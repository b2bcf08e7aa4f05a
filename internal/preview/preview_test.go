package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
)

func testFetcher() *Fetcher {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewFetcher(l)
}

func serve(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchOpenGraph(t *testing.T) {
	srv := serve(t, `<html><head>
		<meta property="og:title" content="Red Shoes" />
		<meta content="https://cdn.example.com/shoes.jpg" property="og:image" />
		<meta property="og:description" content="Very red &amp; very nice" />
		<title>fallback title</title>
	</head><body></body></html>`, http.StatusOK)

	md := testFetcher().Fetch(context.Background(), srv.URL)
	if md.Title != "Red Shoes" {
		t.Fatalf("expected og:title, got %q", md.Title)
	}
	if md.Image != "https://cdn.example.com/shoes.jpg" {
		t.Fatalf("expected og:image with reversed attribute order, got %q", md.Image)
	}
	if md.Description != "Very red & very nice" {
		t.Fatalf("expected unescaped description, got %q", md.Description)
	}
}

func TestFetchTitleFallback(t *testing.T) {
	srv := serve(t, `<html><head><title> Plain Page </title></head></html>`, http.StatusOK)

	md := testFetcher().Fetch(context.Background(), srv.URL)
	if md.Title != "Plain Page" {
		t.Fatalf("expected trimmed <title> fallback, got %q", md.Title)
	}
}

func TestFetchDegradesToHost(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := serve(t, "not found", http.StatusNotFound)
		u, _ := url.Parse(srv.URL)

		md := testFetcher().Fetch(context.Background(), srv.URL)
		if md.Host != u.Host || md.Title != "" || md.Image != "" {
			t.Fatalf("expected hostname-only metadata, got %+v", md)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := serve(t, "", http.StatusOK)
		dead := srv.URL
		srv.Close()

		md := testFetcher().Fetch(context.Background(), dead)
		if md.Host == "" || md.Title != "" {
			t.Fatalf("expected hostname-only metadata, got %+v", md)
		}
	})

	t.Run("no usable metadata falls back to host", func(t *testing.T) {
		srv := serve(t, `<html><body>nothing here</body></html>`, http.StatusOK)
		u, _ := url.Parse(srv.URL)

		md := testFetcher().Fetch(context.Background(), srv.URL)
		if md.Title != u.Host {
			t.Fatalf("expected host as title, got %q", md.Title)
		}
	})
}

func TestFetchBadURL(t *testing.T) {
	md := testFetcher().Fetch(context.Background(), "::::not a url")
	if md.Host != "" || md.Title != "" {
		t.Fatalf("expected zero metadata for unparseable url, got %+v", md)
	}
}
