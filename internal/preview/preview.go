// Package preview fetches best-effort link metadata for wishlist items. It
// scrapes Open Graph tags with simple pattern matching rather than a full
// HTML parse; anything that goes wrong degrades to hostname-only metadata,
// never an error the caller has to handle.
package preview

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	fetchTimeout = 5 * time.Second
	// Metadata lives in <head>; reading more than this buys nothing.
	maxBodyBytes = 256 << 10

	userAgent = "wishkeeper/1.0 (+link preview)"
)

// Metadata is what could be learned about a URL. Host is always set for a
// valid URL; the rest is best effort.
type Metadata struct {
	URL         string `json:"url"`
	Host        string `json:"host"`
	Title       string `json:"title,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// Fetcher fetches link metadata over HTTP.
type Fetcher struct {
	client *http.Client
	logger *logrus.Logger
}

// NewFetcher creates a Fetcher with a bounded request timeout.
func NewFetcher(logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

var (
	// Matches both property-first and content-first attribute orders.
	ogTitleRe = metaRe("og:title")
	ogImageRe = metaRe("og:image")
	ogDescRe  = metaRe("og:description")
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

func metaRe(property string) *regexp.Regexp {
	p := regexp.QuoteMeta(property)
	return regexp.MustCompile(
		`(?is)<meta[^>]+(?:property|name)=["']` + p + `["'][^>]+content=["']([^"']*)["']` +
			`|<meta[^>]+content=["']([^"']*)["'][^>]+(?:property|name)=["']` + p + `["']`)
}

// Fetch resolves metadata for rawURL. An unparseable URL yields zero-value
// Metadata; fetch or parse failures yield hostname-only Metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Metadata {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return Metadata{URL: rawURL}
	}

	md := Metadata{URL: rawURL, Host: u.Host}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return md
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.WithError(err).WithField("url", rawURL).Debug("Link preview fetch failed")
		return md
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return md
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return md
	}

	doc := string(body)
	md.Title = firstMatch(ogTitleRe, doc)
	md.Image = firstMatch(ogImageRe, doc)
	md.Description = firstMatch(ogDescRe, doc)

	if md.Title == "" {
		if m := titleRe.FindStringSubmatch(doc); m != nil {
			md.Title = strings.TrimSpace(html.UnescapeString(m[1]))
		}
	}
	if md.Title == "" {
		md.Title = u.Host
	}
	return md
}

func firstMatch(re *regexp.Regexp, doc string) string {
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimSpace(html.UnescapeString(g))
		}
	}
	return ""
}
