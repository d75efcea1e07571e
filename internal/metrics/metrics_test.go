package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestObserveRun(t *testing.T) {
	RegisterDefault()
	ObserveRun(RunStats{Algorithm: "metrics_test", Outcome: "valid", Elapsed: time.Second, Iterations: 100, ImprovementPct: 4, Accepted: 3, Illegal: 7})
	body := scrape(t)
	assert.Contains(t, body, `tourney_search_runs_total{algorithm="metrics_test",outcome="valid"} 1`)
	assert.Contains(t, body, `tourney_move_outcomes_total{algorithm="metrics_test",outcome="illegal"} 7`)
	assert.Contains(t, body, `tourney_search_iterations_count{algorithm="metrics_test"} 1`)
}

func TestMiddleware(t *testing.T) {
	RegisterDefault()
	h := Middleware("/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Contains(t, scrape(t), `http_requests_total{method="GET",path="/teapot",status="418"} 1`)
}
