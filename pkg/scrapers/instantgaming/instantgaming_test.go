package instantgaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"game-hunter/pkg/httpclient"
	"game-hunter/pkg/models"
)

const searchPage = `<html><body><div class="search">
<article class="item">
  <a class="cover" href="/es/3019-comprar-stardew-valley-pc-juego-steam/" title="comprar Stardew Valley">
    <img data-src="https://gaming-cdn.com/sv.jpg" src="data:placeholder">
  </a>
  <div class="price">10,49 €</div>
  <div class="old-price">14,99 €</div>
</article>
<article class="item">
  <a class="cover" href="/es/999-comprar-valley-soundtrack/" title="comprar Stardew Valley Soundtrack">
    <img src="https://gaming-cdn.com/ost.jpg">
  </a>
  <div class="price-row"><span class="price">3,99 €</span></div>
</article>
<article class="item">
  <a class="cover" href="/es/1-comprar-doom/" title="comprar DOOM Eternal"></a>
  <div class="price">9,99 €</div>
</article>
<article class="item">
  <a class="cover" href="/es/2-comprar-sv-bundle/" title="comprar Stardew Valley Collector Bundle"></a>
  <div class="price">agotado</div>
</article>
<article class="item">
  <a class="cover" href="https://www.instant-gaming.com/es/3-stardew-valley-xbox/" title="Stardew Valley (Xbox)"></a>
  <div class="price">12,00 €</div>
  <div class="old-price">11,00 €</div>
</article>
</div></body></html>`

func newTestScraper(t *testing.T, handler http.HandlerFunc) (*Scraper, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := httpclient.New(time.Second)
	t.Cleanup(client.Close)

	s := NewScraper(client)
	s.BaseURL = ts.URL
	return s, ts
}

func fixtureHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/es/busquedas/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if q := r.URL.Query().Get("query"); q != "stardew valley" {
			t.Errorf("expected normalized query, got %q", q)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, searchPage)
	}
}

func TestSearch(t *testing.T) {
	s, ts := newTestScraper(t, fixtureHandler(t))

	got, err := s.Search(context.Background(), "Stardew Valley!", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.Title != "Stardew Valley" {
		t.Errorf("expected the buy prefix to be stripped, got %q", first.Title)
	}
	if first.FinalPrice != 10.49 || first.Currency != "EUR" {
		t.Errorf("unexpected price %+v", first)
	}
	if first.OriginalPrice == nil || *first.OriginalPrice != 14.99 || first.DiscountPercent != 30 {
		t.Errorf("unexpected discount %+v", first)
	}
	if first.URL != ts.URL+"/es/3019-comprar-stardew-valley-pc-juego-steam/" {
		t.Errorf("unexpected url %q", first.URL)
	}
	if first.Thumbnail != "https://gaming-cdn.com/sv.jpg" {
		t.Errorf("expected data-src thumbnail, got %q", first.Thumbnail)
	}
	if first.Source != Source {
		t.Errorf("unexpected source %q", first.Source)
	}

	if got[1].FinalPrice != 3.99 || got[1].OriginalPrice != nil {
		t.Errorf("fallback price selector not used: %+v", got[1])
	}

	last := got[2]
	if last.URL != "https://www.instant-gaming.com/es/3-stardew-valley-xbox/" {
		t.Errorf("absolute urls must be kept, got %q", last.URL)
	}
	if last.OriginalPrice != nil || last.DiscountPercent != 0 {
		t.Errorf("original below final must be dropped, got %+v", last)
	}
}

func TestSearchStopsAtLimit(t *testing.T) {
	s, _ := newTestScraper(t, fixtureHandler(t))

	got, err := s.Search(context.Background(), "stardew valley", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Stardew Valley" {
		t.Errorf("expected the first listing only, got %+v", got)
	}
}

func TestSearchClientErrorIsParsed(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<html><body><p>Sin resultados</p></body></html>`)
	})

	got, err := s.Search(context.Background(), "stardew valley", 3)
	if err != nil {
		t.Fatalf("4xx pages are parsed, got error %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %+v", got)
	}
}

func TestSearchUnavailable(t *testing.T) {
	s, _ := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := s.Search(context.Background(), "stardew valley", 3)
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}
