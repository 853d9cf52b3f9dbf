package newsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchBuildsQueryAndFilters(t *testing.T) {
	var gotQuery, gotKey, gotLang, gotExcluded string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = q.Get("q")
		gotKey = q.Get("apiKey")
		gotLang = q.Get("language")
		gotExcluded = q.Get("excludeDomains")

		fmt.Fprint(w, `{
			"status": "ok",
			"articles": [
				{"title": "Primera", "description": "desc", "url": "https://a", "publishedAt": "2025-01-01T00:00:00Z", "source": {"name": "Diario A"}, "author": "Ana"},
				{"title": "Sin descripción", "description": "", "url": "https://b"},
				{"title": "Segunda", "description": "desc2", "url": "https://c", "source": {"name": "Diario C"}}
			]
		}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", Options{
		Language:        "es",
		SortBy:          "publishedAt",
		PageSize:        5,
		ExcludedDomains: "youtube.com",
		Timeout:         2 * time.Second,
	})

	articles, err := client.Search(context.Background(), []string{"golang", "go"})
	require.NoError(t, err)

	assert.Equal(t, "golang OR go", gotQuery)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "es", gotLang)
	assert.Equal(t, "youtube.com", gotExcluded)

	require.Len(t, articles, 2, "entries without a description are dropped")
	assert.Equal(t, "Primera", articles[0].Title)
	assert.Equal(t, "Diario A", articles[0].SourceName)
	assert.Equal(t, "Segunda", articles[1].Title)
}

func TestSearchRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "error", "message": "apiKeyInvalid"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bad", Options{Timeout: 2 * time.Second})
	_, err := client.Search(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", Options{Timeout: 2 * time.Second})
	_, err := client.Search(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
