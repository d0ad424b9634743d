package origin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practice2025/supportai/internal/mediawiki"
	"github.com/practice2025/supportai/internal/repository"
	"github.com/practice2025/supportai/internal/upstream"
)

func wikiServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "parse", r.URL.Query().Get("action"))
		assert.Equal(t, "12", r.URL.Query().Get("pageid"))
		json.NewEncoder(w).Encode(map[string]any{
			"parse": map[string]any{"text": map[string]string{"*": html}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMediaWikiFetcher_Fetch(t *testing.T) {
	srv := wikiServer(t, `<div class="mw-parser-output"><h2>Steps</h2><p>Open <b>Settings</b> &amp; reboot.</p></div>`)
	f := NewMediaWikiFetcher(mediawiki.NewClient(srv.URL + "/api.php"))

	text, err := f.Fetch(context.Background(), repository.Document{ID: "mediawiki_12"})
	require.NoError(t, err)
	assert.Equal(t, "Steps Open Settings & reboot.", text)
}

func TestMediaWikiFetcher_ForeignID(t *testing.T) {
	f := NewMediaWikiFetcher(mediawiki.NewClient("http://127.0.0.1:1/api.php"))

	_, err := f.Fetch(context.Background(), repository.Document{ID: "sol-1"})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestMediaWikiFetcher_EmptyPage(t *testing.T) {
	srv := wikiServer(t, `<div></div>`)
	f := NewMediaWikiFetcher(mediawiki.NewClient(srv.URL + "/api.php"))

	_, err := f.Fetch(context.Background(), repository.Document{ID: "mediawiki_12"})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestNoopFetcher(t *testing.T) {
	_, err := NoopFetcher{}.Fetch(context.Background(), repository.Document{ID: "x"})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}

func TestBrowserFetcher_RequiresURL(t *testing.T) {
	f := NewBrowserFetcher("", nil)
	defer f.Close()

	_, err := f.Fetch(context.Background(), repository.Document{ID: "x"})
	assert.ErrorIs(t, err, upstream.ErrUnavailable)
}
