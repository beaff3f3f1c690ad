package wikidata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Poligraph/internal/config"
)

const sparqlFixture = `{
  "results": {"bindings": [
    {"crime": {"value": "http://www.wikidata.org/entity/Q1756454"},
     "crimeLabel": {"value": "détournement de fonds publics"},
     "date": {"value": "2020-06-29T00:00:00Z"}},
    {"crime": {"value": "http://www.wikidata.org/entity/Q20820253"},
     "crimeLabel": {"value": "prise illégale d'intérêts"}}
  ]}
}`

func TestConvictionsParsesAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "poligraph-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.True(t, strings.Contains(r.URL.Query().Get("query"), "wd:Q42 p:P1399"))
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(sparqlFixture))
	}))
	defer srv.Close()

	c := NewClient(config.WikidataConfig{Endpoint: srv.URL, UserAgent: "poligraph-test", RequestsPerSecond: 50, CacheTTL: "1m"})

	got, err := c.Convictions(context.Background(), "Q42")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Q1756454", got[0].CrimeQID)
	assert.Equal(t, "détournement de fonds publics", got[0].CrimeLabel)
	require.NotNil(t, got[0].Date)
	assert.True(t, got[0].Date.Equal(time.Date(2020, time.June, 29, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, got[1].Date)

	_, err = c.Convictions(context.Background(), "Q42")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestConvictionsRejectsInvalidID(t *testing.T) {
	c := NewClient(config.WikidataConfig{Endpoint: "http://127.0.0.1:0"})
	_, err := c.Convictions(context.Background(), "42; DROP")
	assert.Error(t, err)
}

func TestConvictionsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(config.WikidataConfig{Endpoint: srv.URL, RequestsPerSecond: 50})
	_, err := c.Convictions(context.Background(), "Q1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
