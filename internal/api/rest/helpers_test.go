package rest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/repository"
	"github.com/davidleathers/energy-plan-advisor/internal/metrics"
	"github.com/davidleathers/energy-plan-advisor/internal/service/catalog"
	"github.com/davidleathers/energy-plan-advisor/internal/service/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
	"github.com/davidleathers/energy-plan-advisor/internal/service/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/testutil"
	"github.com/davidleathers/energy-plan-advisor/internal/testutil/fixtures"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// testCatalog is the seeded plan set: a cheap variable plan, two fixed plans and a
// fully renewable one.
type testCatalog struct {
	variable *plan.Plan
	standard *plan.Plan
	long     *plan.Plan
	green    *plan.Plan
}

func newTestCatalog() testCatalog {
	steady := fixtures.NewSupplier("Steady Energy", "4.0")
	sunrise := fixtures.NewSupplier("Sunrise Power", "4.8")
	return testCatalog{
		variable: fixtures.NewPlanBuilder().WithName("Budget Variable").WithSupplier(steady).
			WithRate(plan.RateVariable, "0.08").WithContract(1, "0").Build(),
		standard: fixtures.NewPlanBuilder().WithName("Standard Fixed").WithSupplier(steady).
			WithRate(plan.RateFixed, "0.10").WithContract(12, "100").WithRenewable(20).Build(),
		long: fixtures.NewPlanBuilder().WithName("Locked Fixed").WithSupplier(steady).
			WithRate(plan.RateFixed, "0.095").WithContract(36, "250").Build(),
		green: fixtures.NewPlanBuilder().WithName("Green Flex").WithSupplier(sunrise).
			WithRate(plan.RateFixed, "0.12").WithContract(6, "50").WithRenewable(100).Build(),
	}
}

func (c testCatalog) all() []*plan.Plan {
	return []*plan.Plan{c.variable, c.standard, c.long, c.green}
}

type testServer struct {
	handler  http.Handler
	store    *repository.MemoryStore
	mr       *miniredis.Miniredis
	catalog  testCatalog
	registry *metrics.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zaptest.NewLogger(t)
	clk := &clock.MockClock{CurrentTime: now}

	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(&config.RedisConfig{
		URL:         mr.Addr(),
		DialTimeout: time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { redisCache.Close() })

	registry, err := metrics.NewRegistry("rest-test")
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	plans := newTestCatalog()
	store.LoadPlans(plans.all())

	cat := catalog.NewCachedCatalog(store, redisCache, registry, logger, catalog.Config{})
	recs, err := recommendation.NewService(recommendation.Dependencies{
		Store:   store,
		Catalog: cat,
		Cache:   redisCache,
		Clock:   clk,
		Logger:  logger,
		Metrics: registry,
	})
	require.NoError(t, err)

	health := NewHealthService("energy-plan-advisor", "test", time.Second)
	health.RegisterOptionalChecker(NewPingChecker("cache", redisCache))

	mux := NewRouter(RouterConfig{
		Version: "v1",
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: registry,
		Health:  health,
		Clock:   clk,
	}, Services{
		Store:           store,
		Catalog:         cat,
		Ingestion:       ingestion.NewService(store, recs, registry, clk, logger, ingestion.Config{AnonymizationSalt: "test-salt"}),
		Recommendations: recs,
		Feedback:        feedback.NewService(store, registry, clk, logger),
	})

	return &testServer{handler: mux, store: store, mr: mr, catalog: plans, registry: registry}
}

// seedCustomer stores a customer with the given number of flat months of usage.
func (ts *testServer) seedCustomer(t *testing.T, months int) *customer.Customer {
	t.Helper()
	c := fixtures.NewCustomer(fixtures.FlatUsage(testutil.Month(2023, time.June), months, 900))
	require.NoError(t, ts.store.CreateCustomer(context.Background(), c))
	return c
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doRaw(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorResponse  `json:"error"`
	Meta    ResponseMeta    `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// decodeData decodes the envelope's data member into v and returns the envelope.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) envelope {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
	return env
}

func usageRows(months int) []map[string]any {
	rows := make([]map[string]any, months)
	for i := range rows {
		rows[i] = map[string]any{
			"month": testutil.Month(2023, time.June).AddDate(0, i, 0).Format("2006-01"),
			"kwh":   850 + i*10,
		}
	}
	return rows
}
