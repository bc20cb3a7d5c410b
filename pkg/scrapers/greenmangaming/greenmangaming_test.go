package greenmangaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/models"
)

const hadesPage = `<html><head>
<title>Hades - PC | Green Man Gaming</title>
<meta property="og:image" content="https://images.gmg/hades.jpg">
</head><body>
<h1>Hades</h1>
<gmgprice type="currentPrice">COL$ 45.999</gmgprice>
<gmgprice type="rrp">COL$ 91.999</gmgprice>
</body></html>`

const notFoundPage = `<html><head><title>Page not found - Green Man Gaming</title></head><body><h1>Page not found</h1></body></html>`

const celesteSearchPage = `<html><body>
<a class="product-item" href="/es/games/celeste-farewell-pc/">Celeste</a>
<a class="product-item" href="/es/games/celeste-farewell-pc/">Celeste duplicate</a>
<a class="product-item" href="/es/games/celestial-command-pc/">Celestial Command</a>
<a class="product-item" href="/es/games/doom-pc/">DOOM</a>
</body></html>`

const celestePage = `<html><head><title>Celeste - PC</title></head><body>
<h1>Celeste</h1>
<span itemprop="price" content="19990">COL$ 19.990</span>
<meta property="product:price:currency" content="cop">
</body></html>`

const celestialPage = `<html><body><h1>Celestial Command</h1><div class="current-price">COL$ 9.990</div></body></html>`

const doomPage = `<html><body><h1>DOOM</h1><div class="current-price">$ 19.99</div></body></html>`

func newTestScraper(t *testing.T, handler http.HandlerFunc) *Scraper {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := httpclient.New(time.Second)
	t.Cleanup(client.Close)

	s := NewScraper(client, nil)
	s.BaseURL = ts.URL
	return s
}

func html(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"Hades", "hades"},
		{"The Witcher 3: Wild Hunt", "the-witcher-3-wild-hunt"},
		{"  Pokémon   Go! ", "pokémon-go"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slug(tt.query); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestSearchDirectProductPage(t *testing.T) {
	var searched int32
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/games/hades-pc/":
			html(w, http.StatusOK, hadesPage)
		case "/es/search/":
			atomic.AddInt32(&searched, 1)
			html(w, http.StatusOK, "<html></html>")
		default:
			html(w, http.StatusNotFound, notFoundPage)
		}
	})

	got, err := s.Search(context.Background(), "Hades", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected a single record, got %+v", got)
	}

	rec := got[0]
	if rec.Title != "Hades" || rec.FinalPrice != 45999 || rec.Currency != "COP" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.OriginalPrice == nil || *rec.OriginalPrice != 91999 || rec.DiscountPercent != 50 {
		t.Errorf("unexpected discount %+v", rec)
	}
	if rec.URL != s.BaseURL+"/games/hades-pc/" || rec.Thumbnail != "https://images.gmg/hades.jpg" {
		t.Errorf("unexpected url or thumbnail %+v", rec)
	}
	if atomic.LoadInt32(&searched) != 0 {
		t.Error("search page should not be fetched after a direct hit")
	}
}

func TestSearchFallsBackToSearchResults(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/es/search/":
			if r.URL.Query().Get("query") != "Celeste" {
				t.Errorf("unexpected search query %q", r.URL.RawQuery)
			}
			html(w, http.StatusOK, celesteSearchPage)
		case "/es/games/celeste-farewell-pc/":
			html(w, http.StatusOK, celestePage)
		case "/es/games/celestial-command-pc/":
			html(w, http.StatusOK, celestialPage)
		case "/es/games/doom-pc/":
			html(w, http.StatusOK, doomPage)
		default:
			html(w, http.StatusNotFound, notFoundPage)
		}
	})

	got, err := s.Search(context.Background(), "Celeste", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only Celeste, got %+v", got)
	}
	if got[0].FinalPrice != 19990 || got[0].Currency != "COP" || got[0].OriginalPrice != nil {
		t.Errorf("unexpected record %+v", got[0])
	}
}

type fakeRenderer struct {
	html  string
	calls int32
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.html, nil
}

func TestSearchRendersPricelessMatch(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/es/games/hades-pc/" {
			html(w, http.StatusOK, `<html><head><meta property="og:image" content="https://images.gmg/hades.jpg"></head><body><h1>Hades</h1><gmgprice type="currentPrice"></gmgprice></body></html>`)
			return
		}
		html(w, http.StatusNotFound, notFoundPage)
	})
	renderer := &fakeRenderer{html: `<html><body><gmgprice type="currentPrice">COL$ 45.999</gmgprice></body></html>`}
	s.Renderer = renderer

	got, err := s.Search(context.Background(), "hades", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].FinalPrice != 45999 {
		t.Fatalf("expected the rendered price, got %+v", got)
	}
	if got[0].Title != "Hades" || got[0].Thumbnail != "https://images.gmg/hades.jpg" {
		t.Errorf("static title and thumbnail should be kept, got %+v", got[0])
	}
	if renderer.calls != 1 {
		t.Errorf("expected one render, got %d", renderer.calls)
	}
}

func TestSearchNoMatch(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		html(w, http.StatusNotFound, notFoundPage)
	})

	got, err := s.Search(context.Background(), "hades", 3)
	if err != nil || len(got) != 0 {
		t.Errorf("expected reached with no results, got %v %v", got, err)
	}
}

func TestSearchUnavailable(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.Search(context.Background(), "hades", 3)
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestExtractFallsBackToJSONLD(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/es/games/hades-pc/" {
			html(w, http.StatusOK, `<html><head><title>Buy now - Green Man Gaming</title>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","name":"Hades","image":["https://images.gmg/ld.jpg"],
"offers":[{"@type":"Offer","price":"24.99","priceCurrency":"usd"}]}</script>
</head><body></body></html>`)
			return
		}
		html(w, http.StatusNotFound, notFoundPage)
	})

	got, err := s.Search(context.Background(), "hades", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
	rec := got[0]
	if rec.Title != "Hades" || rec.FinalPrice != 24.99 || rec.Currency != "USD" || rec.Thumbnail != "https://images.gmg/ld.jpg" {
		t.Errorf("unexpected record %+v", rec)
	}
}
