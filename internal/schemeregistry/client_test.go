package schemeregistry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"pension-calculation-engine/internal/model"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func policiesFor(schemeIDs ...string) []model.Policy {
	out := make([]model.Policy, len(schemeIDs))
	for i, id := range schemeIDs {
		out[i] = model.Policy{PolicyID: "d-1-1", SchemeID: id}
	}
	return out
}

// fakeRegistry serves /schemes/{id}; ids in slow hang past any join timeout.
type fakeRegistry struct {
	rates map[string]float64
	slow  map[string]bool
	hits  atomic.Int64
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	id := r.URL.Path[len("/schemes/"):]
	if f.slow[id] {
		time.Sleep(500 * time.Millisecond)
	}
	rate, ok := f.rates[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"scheme_id": id, "accrual_rate": rate})
}

func newTestClient(baseURL string, joinTimeout time.Duration) *Client {
	return New(baseURL, time.Second, joinTimeout, NewRateCache(), testLogger())
}

func TestDisabledClientReturnsMarker(t *testing.T) {
	c := newTestClient("", time.Second)

	require.False(t, c.Enabled())
	require.Nil(t, c.GetAccrualRates(context.Background(), policiesFor("S1")))
}

func TestFetchesAndCaches(t *testing.T) {
	fake := &fakeRegistry{rates: map[string]float64{"S1": 0.018, "S2": 0.025}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)

	rates := c.GetAccrualRates(context.Background(), policiesFor("S1", "S2", "S1"))
	require.Equal(t, map[string]float64{"S1": 0.018, "S2": 0.025}, rates)
	require.EqualValues(t, 2, fake.hits.Load()) // duplicates deduplicated

	rates = c.GetAccrualRates(context.Background(), policiesFor("S1", "S2"))
	require.Equal(t, map[string]float64{"S1": 0.018, "S2": 0.025}, rates)
	require.EqualValues(t, 2, fake.hits.Load()) // served from cache
}

func TestUnknownSchemeDefaultsAndCaches(t *testing.T) {
	fake := &fakeRegistry{rates: map[string]float64{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)

	rates := c.GetAccrualRates(context.Background(), policiesFor("S404"))
	require.Equal(t, map[string]float64{"S404": DefaultAccrualRate}, rates)

	// a definitive registry answer is cached, even a failing one
	cached, ok := c.cache.Load("S404")
	require.True(t, ok)
	require.Equal(t, DefaultAccrualRate, cached)
}

func TestSlowLookupDefaultsWithoutCaching(t *testing.T) {
	fake := &fakeRegistry{
		rates: map[string]float64{"S1": 0.018, "SLOW": 0.03},
		slow:  map[string]bool{"SLOW": true},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(srv.URL, 150*time.Millisecond)

	start := time.Now()
	rates := c.GetAccrualRates(context.Background(), policiesFor("S1", "SLOW"))
	require.Less(t, time.Since(start), time.Second)

	// every requested id resolves; the slow one gets the default
	require.Equal(t, map[string]float64{"S1": 0.018, "SLOW": DefaultAccrualRate}, rates)

	// the timed-out id is not cached, so it stays retry-eligible
	_, ok := c.cache.Load("SLOW")
	require.False(t, ok)
	_, ok = c.cache.Load("S1")
	require.True(t, ok)
}

func TestMalformedBodyDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)

	rates := c.GetAccrualRates(context.Background(), policiesFor("S1"))
	require.Equal(t, map[string]float64{"S1": DefaultAccrualRate}, rates)
}
