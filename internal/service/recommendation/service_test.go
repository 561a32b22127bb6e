package recommendation

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/config"
)

var today = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *mockStore) GetPreferences(ctx context.Context, customerID uuid.UUID) (*preference.Preferences, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*preference.Preferences), args.Error(1)
}

func (m *mockStore) SaveRecommendations(ctx context.Context, set *recommendation.Set) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*plan.Plan), args.Error(1)
}

func (m *mockCatalog) Plan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

type failingCache struct{}

func (failingCache) GetJSON(context.Context, string, interface{}) error {
	return stderrors.New("dial tcp: connection refused")
}

func (failingCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return stderrors.New("dial tcp: connection refused")
}

func (failingCache) Delete(context.Context, ...string) error {
	return stderrors.New("dial tcp: connection refused")
}

// catalogFixture is four plans priced against 1000 kWh every month:
// budget 960/yr variable 24mo, standard 1200/yr, green 1440/yr, legacy 1800/yr.
type catalogFixture struct {
	budget, standard, green, legacy *plan.Plan
}

func (f catalogFixture) all() []*plan.Plan {
	return []*plan.Plan{f.budget, f.standard, f.green, f.legacy}
}

func newCatalogFixture() catalogFixture {
	four := decimal.NewFromInt(4)
	five := decimal.NewFromInt(5)
	return catalogFixture{
		budget: &plan.Plan{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), Name: "Budget Saver",
			RateKind: plan.RateVariable, RatePerKWh: decimal.RequireFromString("0.08"),
			ContractLengthMonths: 24, EarlyTerminationFee: decimal.NewFromInt(250),
			RenewablePercentage: 0, Active: true,
		},
		standard: &plan.Plan{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), Name: "Standard Fixed",
			RateKind: plan.RateFixed, RatePerKWh: decimal.RequireFromString("0.10"),
			ContractLengthMonths: 12, RenewablePercentage: 20, Active: true,
			Supplier: &plan.Supplier{ID: uuid.New(), Name: "Steady Energy", Rating: &four},
		},
		green: &plan.Plan{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000c"), Name: "Green Flex",
			RateKind: plan.RateFixed, RatePerKWh: decimal.RequireFromString("0.12"),
			ContractLengthMonths: 1, RenewablePercentage: 100, Active: true,
			Supplier: &plan.Supplier{ID: uuid.New(), Name: "Sunrise Power", Rating: &five},
		},
		legacy: &plan.Plan{
			ID: uuid.MustParse("00000000-0000-0000-0000-00000000000d"), Name: "Legacy Fixed",
			RateKind: plan.RateFixed, RatePerKWh: decimal.RequireFromString("0.15"),
			ContractLengthMonths: 36, RenewablePercentage: 0, Active: true,
		},
	}
}

func monthlyUsage(months int, kwh int64) []customer.UsageRecord {
	records := make([]customer.UsageRecord, months)
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range records {
		records[i] = customer.UsageRecord{Period: start.AddDate(0, i, 0), KWh: decimal.NewFromInt(kwh)}
	}
	return records
}

func newCustomer(months int) *customer.Customer {
	return &customer.Customer{
		ID:                  uuid.New(),
		EarlyTerminationFee: decimal.Zero,
		Usage:               monthlyUsage(months, 1000),
	}
}

func costOnly() *preference.Preferences {
	return &preference.Preferences{
		Weights: preference.NewWeights(decimal.NewFromInt(1), decimal.Zero, decimal.Zero, decimal.Zero),
	}
}

type harness struct {
	svc     Service
	store   *mockStore
	catalog *mockCatalog
	plans   catalogFixture
}

func newHarness(t *testing.T, c Cache) *harness {
	t.Helper()
	h := &harness{
		store:   new(mockStore),
		catalog: new(mockCatalog),
		plans:   newCatalogFixture(),
	}
	h.catalog.On("ActivePlans", mock.Anything).Return(h.plans.all(), nil).Maybe()
	for _, p := range h.plans.all() {
		h.catalog.On("Plan", mock.Anything, p.ID).Return(p, nil).Maybe()
	}
	h.store.On("SaveRecommendations", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc, err := NewService(Dependencies{
		Store:   h.store,
		Catalog: h.catalog,
		Cache:   c,
		Clock:   &clock.MockClock{CurrentTime: today},
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func planIDs(set *recommendation.Set) []uuid.UUID {
	ids := make([]uuid.UUID, len(set.Recommendations))
	for i, r := range set.Recommendations {
		ids[i] = r.PlanID
	}
	return ids
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Dependencies{Catalog: new(mockCatalog)})
	assert.Error(t, err)

	_, err = NewService(Dependencies{Store: new(mockStore)})
	assert.Error(t, err)
}

func TestGenerate_RanksByCostWhenCostIsTheOnlyWeight(t *testing.T) {
	h := newHarness(t, nil)
	cust := newCustomer(12)

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
	require.NoError(t, err)

	require.Len(t, set.Recommendations, 3)
	assert.Equal(t, []uuid.UUID{h.plans.budget.ID, h.plans.standard.ID, h.plans.green.ID}, planIDs(set))

	for i, r := range set.Recommendations {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, cust.ID, r.CustomerID)
		assert.Equal(t, today, r.CreatedAt)
		assert.Equal(t, today.Add(time.Hour), r.ExpiresAt)
	}

	first := set.Recommendations[0]
	assert.Equal(t, 1.0, first.Scores.Cost)
	assert.Equal(t, 1.0, first.Scores.Overall)
	assert.True(t, first.ProjectedAnnualCost.Equal(decimal.NewFromInt(960)))
	assert.True(t, first.ProjectedAnnualSavings.IsZero(), "no current plan means no savings baseline")
	assert.Nil(t, set.CurrentAnnualCost)
	assert.True(t, set.BestSavings.IsZero())
	assert.Empty(t, set.Warnings)
	assert.Empty(t, set.FilteredPlans)
}

func TestGenerate_HardConstraintFilters(t *testing.T) {
	maxTwelve := 12

	tests := []struct {
		name         string
		constraints  preference.Constraints
		wantEligible int
		wantFiltered map[string]recommendation.FilterCode
	}{
		{
			name:         "minimum renewable",
			constraints:  preference.Constraints{MinRenewablePercentage: 50},
			wantEligible: 1,
			wantFiltered: map[string]recommendation.FilterCode{
				"Budget Saver":   recommendation.FilterLowRenewable,
				"Standard Fixed": recommendation.FilterLowRenewable,
				"Legacy Fixed":   recommendation.FilterLowRenewable,
			},
		},
		{
			name:         "first failing constraint wins",
			constraints:  preference.Constraints{MaxContractMonths: &maxTwelve, AvoidVariableRates: true},
			wantEligible: 2,
			wantFiltered: map[string]recommendation.FilterCode{
				"Budget Saver": recommendation.FilterLongContract,
				"Legacy Fixed": recommendation.FilterLongContract,
			},
		},
		{
			name:         "variable rates only",
			constraints:  preference.Constraints{AvoidVariableRates: true},
			wantEligible: 3,
			wantFiltered: map[string]recommendation.FilterCode{
				"Budget Saver": recommendation.FilterVariableRate,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			prefs := preference.Defaults(uuid.Nil)
			prefs.Constraints = tt.constraints

			set, err := h.svc.Generate(context.Background(), newCustomer(12), prefs, false)
			require.NoError(t, err)

			got := make(map[string]recommendation.FilterCode, len(set.FilteredPlans))
			filteredIDs := make(map[uuid.UUID]bool)
			for _, f := range set.FilteredPlans {
				got[f.PlanName] = f.FilterCode
				filteredIDs[f.PlanID] = true
				assert.NotEmpty(t, f.FilterReason)
			}
			assert.Equal(t, tt.wantFiltered, got)
			assert.Len(t, set.Recommendations, tt.wantEligible)

			for _, r := range set.Recommendations {
				assert.False(t, filteredIDs[r.PlanID], "filtered plan %s was recommended", r.PlanName)
			}
		})
	}
}

func TestGenerate_TiesBreakOnCostThenPlanID(t *testing.T) {
	h := newHarness(t, nil)
	zero := &preference.Preferences{
		Weights: preference.NewWeights(decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero),
	}

	set, err := h.svc.Generate(context.Background(), newCustomer(12), zero, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{h.plans.budget.ID, h.plans.standard.ID, h.plans.green.ID}, planIDs(set))

	twin := *h.plans.standard
	twin.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	twin.Name = "Standard Twin"

	h2 := newHarness(t, nil)
	h2.catalog.ExpectedCalls = nil
	h2.catalog.On("ActivePlans", mock.Anything).Return([]*plan.Plan{h.plans.standard, &twin}, nil)

	set, err = h2.svc.Generate(context.Background(), newCustomer(12), zero, false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{twin.ID, h.plans.standard.ID}, planIDs(set))
}

func TestGenerate_SavingsAgainstCurrentPlan(t *testing.T) {
	h := newHarness(t, nil)
	cust := newCustomer(12)
	cust.CurrentPlanID = &h.plans.legacy.ID

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
	require.NoError(t, err)

	require.NotNil(t, set.CurrentAnnualCost)
	assert.True(t, set.CurrentAnnualCost.Equal(decimal.NewFromInt(1800)))

	want := []int64{840, 600, 360}
	for i, r := range set.Recommendations {
		assert.True(t, r.ProjectedAnnualSavings.Equal(decimal.NewFromInt(want[i])),
			"rank %d savings %s", r.Rank, r.ProjectedAnnualSavings)
		assert.True(t, r.SwitchingCost.IsZero())
		assert.True(t, r.NetFirstYearSavings.Equal(r.ProjectedAnnualSavings))
		assert.Nil(t, r.SwitchingAnalysis)
	}
	assert.True(t, set.BestSavings.Equal(decimal.NewFromInt(840)))
	assert.Nil(t, set.SwitchingWindows)
}

func TestGenerate_MissingCurrentPlanSkipsBaseline(t *testing.T) {
	h := newHarness(t, nil)
	missing := uuid.New()
	h.catalog.On("Plan", mock.Anything, missing).Return(nil, errors.NewNotFoundError("plan"))

	cust := newCustomer(12)
	cust.CurrentPlanID = &missing

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), true)
	require.NoError(t, err)
	assert.Nil(t, set.CurrentAnnualCost)
	for _, r := range set.Recommendations {
		assert.Nil(t, r.SwitchingAnalysis)
	}
}

func TestGenerate_SwitchingAnalysis(t *testing.T) {
	h := newHarness(t, nil)
	end := today.AddDate(0, 0, 180)

	cust := newCustomer(12)
	cust.CurrentPlanID = &h.plans.legacy.ID
	cust.ContractEndDate = &end
	cust.EarlyTerminationFee = decimal.NewFromInt(150)

	t.Run("enabled", func(t *testing.T) {
		set, err := h.svc.Generate(context.Background(), cust, costOnly(), true)
		require.NoError(t, err)

		first := set.Recommendations[0]
		assert.Equal(t, h.plans.budget.ID, first.PlanID)
		assert.True(t, first.SwitchingCost.Equal(decimal.NewFromInt(150)))
		assert.True(t, first.NetFirstYearSavings.Equal(decimal.NewFromInt(690)))

		require.NotNil(t, first.SwitchingAnalysis)
		assert.Equal(t, analysis.SwitchNow, first.SwitchingAnalysis.Recommendation)
		assert.True(t, first.SwitchingAnalysis.HasActiveContract)

		require.NotNil(t, set.SwitchingWindows)
		require.NotNil(t, set.SwitchingWindows.OptimalNoticeDate)
		assert.True(t, end.AddDate(0, 0, -60).Equal(*set.SwitchingWindows.OptimalNoticeDate))
	})

	t.Run("disabled", func(t *testing.T) {
		set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
		require.NoError(t, err)

		for _, r := range set.Recommendations {
			assert.True(t, r.SwitchingCost.IsZero())
			assert.Nil(t, r.SwitchingAnalysis)
		}
		assert.Nil(t, set.SwitchingWindows)
	})

	t.Run("expired contract", func(t *testing.T) {
		past := today.AddDate(0, -1, 0)
		expired := *cust
		expired.ContractEndDate = &past

		set, err := h.svc.Generate(context.Background(), &expired, costOnly(), true)
		require.NoError(t, err)
		assert.True(t, set.Recommendations[0].SwitchingCost.IsZero())
		assert.False(t, set.Recommendations[0].SwitchingAnalysis.HasActiveContract)
	})

	t.Run("unknown contract end still owes the fee", func(t *testing.T) {
		noEnd := *cust
		noEnd.ContractEndDate = nil

		set, err := h.svc.Generate(context.Background(), &noEnd, costOnly(), true)
		require.NoError(t, err)

		first := set.Recommendations[0]
		assert.True(t, first.SwitchingCost.Equal(decimal.NewFromInt(150)))
		assert.True(t, first.NetFirstYearSavings.Equal(first.ProjectedAnnualSavings.Sub(decimal.NewFromInt(150))))
	})
}

func TestGenerate_RiskFlagsAndConfidence(t *testing.T) {
	tests := []struct {
		name           string
		months         int
		wantConfidence recommendation.Confidence
		wantCodes      []string
	}{
		{
			name:           "full history",
			months:         12,
			wantConfidence: recommendation.ConfidenceHigh,
			wantCodes:      []string{recommendation.RiskVariableRate, recommendation.RiskLongContract, recommendation.RiskHighETF},
		},
		{
			name:           "eight months",
			months:         8,
			wantConfidence: recommendation.ConfidenceMedium,
			wantCodes: []string{recommendation.RiskVariableRate, recommendation.RiskLongContract,
				recommendation.RiskHighETF, recommendation.RiskInsufficientData},
		},
		{
			name:           "four months",
			months:         4,
			wantConfidence: recommendation.ConfidenceLow,
			wantCodes: []string{recommendation.RiskVariableRate, recommendation.RiskLongContract,
				recommendation.RiskHighETF, recommendation.RiskInsufficientData},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			set, err := h.svc.Generate(context.Background(), newCustomer(tt.months), costOnly(), false)
			require.NoError(t, err)

			budget := set.Recommendations[0]
			require.Equal(t, h.plans.budget.ID, budget.PlanID)

			codes := make([]string, len(budget.RiskFlags))
			for i, f := range budget.RiskFlags {
				codes[i] = f.Code
			}
			assert.Equal(t, tt.wantCodes, codes)
			assert.Equal(t, tt.wantConfidence, budget.ConfidenceLevel)
		})
	}
}

func TestGenerate_Explanations(t *testing.T) {
	h := newHarness(t, nil)
	cust := newCustomer(12)
	cust.CurrentPlanID = &h.plans.legacy.ID

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
	require.NoError(t, err)

	budget, green := set.Recommendations[0], set.Recommendations[2]

	assert.Equal(t, "This plan offers excellent value with projected annual savings of $840.00.", budget.Explanation)
	assert.Equal(t, "top", budget.ExplanationDetails.CostRanking)
	assert.Equal(t, "standard", budget.ExplanationDetails.Flexibility)
	assert.Equal(t, "840.00", budget.ExplanationDetails.ProjectedSavings)
	assert.NotEmpty(t, budget.ExplanationDetails.ScoreRationale)

	assert.Equal(t, "This plan could save you $360.00 per year, includes 100% renewable energy, "+
		"offers flexible month-to-month or short-term commitment, from Sunrise Power, a highly-rated supplier.",
		green.Explanation)
	assert.Equal(t, "competitive", green.ExplanationDetails.CostRanking)
	assert.Equal(t, "high", green.ExplanationDetails.RenewableLevel)
	assert.Equal(t, "high", green.ExplanationDetails.Flexibility)
}

func TestGenerate_Warnings(t *testing.T) {
	h := newHarness(t, nil)
	prefs := preference.Defaults(uuid.Nil)
	prefs.Constraints.MinRenewablePercentage = 50

	set, err := h.svc.Generate(context.Background(), newCustomer(8), prefs, false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Only 1 plans match your criteria. Consider relaxing constraints for more options.",
		"Projections based on 8 months of data. 12 months recommended for accurate estimates.",
		"3 plans were filtered out based on your preferences.",
	}, set.Warnings)
}

func TestGenerate_EmptyCatalog(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.ExpectedCalls = nil
	h.catalog.On("ActivePlans", mock.Anything).Return([]*plan.Plan{}, nil)

	set, err := h.svc.Generate(context.Background(), newCustomer(12), costOnly(), false)
	require.NoError(t, err)
	assert.Empty(t, set.Recommendations)
	assert.True(t, set.BestSavings.IsZero())
	assert.Contains(t, set.Warnings[0], "Only 0 plans")
	h.store.AssertNotCalled(t, "SaveRecommendations", mock.Anything, mock.Anything)
}

func TestGenerate_CatalogFailurePropagates(t *testing.T) {
	h := newHarness(t, nil)
	h.catalog.ExpectedCalls = nil
	h.catalog.On("ActivePlans", mock.Anything).Return(nil, errors.NewExternalError("postgres", "connection refused"))

	_, err := h.svc.Generate(context.Background(), newCustomer(12), costOnly(), false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestGenerate_PreferenceResolution(t *testing.T) {
	stored := preference.Defaults(uuid.Nil)
	stored.Constraints.AvoidVariableRates = true

	tests := []struct {
		name         string
		storedPrefs  *preference.Preferences
		storeErr     error
		wantErr      bool
		wantFiltered int
	}{
		{name: "stored preferences apply", storedPrefs: stored, wantFiltered: 1},
		{name: "none stored falls back to defaults", storeErr: errors.NewNotFoundError("preferences"), wantFiltered: 0},
		{name: "store failure surfaces", storeErr: errors.NewExternalError("postgres", "timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			cust := newCustomer(12)
			if tt.storedPrefs != nil {
				h.store.On("GetPreferences", mock.Anything, cust.ID).Return(tt.storedPrefs, nil)
			} else {
				h.store.On("GetPreferences", mock.Anything, cust.ID).Return(nil, tt.storeErr)
			}

			set, err := h.svc.Generate(context.Background(), cust, nil, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, set.FilteredPlans, tt.wantFiltered)
		})
	}
}

func TestGenerate_UsageAnalysisAttached(t *testing.T) {
	h := newHarness(t, nil)
	set, err := h.svc.Generate(context.Background(), newCustomer(12), costOnly(), false)
	require.NoError(t, err)

	require.NotNil(t, set.UsageAnalysis)
	assert.Equal(t, 12, set.UsageAnalysis.MonthsOfData)
	assert.Contains(t, set.UsageAnalysis.Insights, analysis.InsightConsumption)
}

func TestGenerate_CacheFailureDoesNotFailRequest(t *testing.T) {
	h := newHarness(t, failingCache{})
	cust := newCustomer(12)

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
	require.NoError(t, err)
	assert.Len(t, set.Recommendations, 3)

	cached, ok := h.svc.Cached(context.Background(), cust.ID)
	assert.False(t, ok)
	assert.Nil(t, cached)

	h.svc.Invalidate(context.Background(), cust.ID)
}

func TestGenerate_HistoryWriteFailureIsLogged(t *testing.T) {
	h := newHarness(t, nil)
	h.store.ExpectedCalls = nil
	h.store.On("SaveRecommendations", mock.Anything, mock.Anything).Return(stderrors.New("disk full"))

	set, err := h.svc.Generate(context.Background(), newCustomer(12), costOnly(), false)
	require.NoError(t, err)
	assert.Len(t, set.Recommendations, 3)
	h.store.AssertExpectations(t)
}

func TestCachedRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(&config.RedisConfig{
		URL:         mr.Addr(),
		DialTimeout: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	h := newHarness(t, redisCache)
	cust := newCustomer(12)

	_, ok := h.svc.Cached(context.Background(), cust.ID)
	assert.False(t, ok)

	set, err := h.svc.Generate(context.Background(), cust, costOnly(), false)
	require.NoError(t, err)

	key := recommendation.CacheKey(cust.ID)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	cached, ok := h.svc.Cached(context.Background(), cust.ID)
	require.True(t, ok)
	assert.Equal(t, planIDs(set), planIDs(cached))
	assert.True(t, cached.Recommendations[0].ProjectedAnnualCost.Equal(decimal.NewFromInt(960)))

	h.svc.Invalidate(context.Background(), cust.ID)
	assert.False(t, mr.Exists(key))
}

func TestCached_StaleAfterCatalogChange(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCache(&config.RedisConfig{
		URL:         mr.Addr(),
		DialTimeout: time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	h := newHarness(t, redisCache)
	cust := newCustomer(12)
	ctx := context.Background()

	_, err = h.svc.Generate(ctx, cust, costOnly(), false)
	require.NoError(t, err)
	_, ok := h.svc.Cached(ctx, cust.ID)
	require.True(t, ok)

	require.NoError(t, redisCache.SetJSON(ctx, cache.CatalogVersionKey, "after-plan-change", 0))

	cached, ok := h.svc.Cached(ctx, cust.ID)
	assert.False(t, ok)
	assert.Nil(t, cached)
	assert.False(t, mr.Exists(recommendation.CacheKey(cust.ID)), "stale set is evicted")

	_, err = h.svc.Generate(ctx, cust, costOnly(), false)
	require.NoError(t, err)
	_, ok = h.svc.Cached(ctx, cust.ID)
	assert.True(t, ok)
}

func TestRecommend(t *testing.T) {
	t.Run("customer not found", func(t *testing.T) {
		h := newHarness(t, nil)
		id := uuid.New()
		h.store.On("GetCustomer", mock.Anything, id).Return(nil, errors.NewNotFoundError("customer"))

		_, err := h.svc.Recommend(context.Background(), id, nil, false)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	})

	t.Run("too little usage", func(t *testing.T) {
		h := newHarness(t, nil)
		cust := newCustomer(2)
		h.store.On("GetCustomer", mock.Anything, cust.ID).Return(cust, nil)

		_, err := h.svc.Recommend(context.Background(), cust.ID, nil, false)
		require.Error(t, err)
		appErr, ok := errors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "INSUFFICIENT_USAGE_DATA", appErr.Code)
		h.catalog.AssertNotCalled(t, "ActivePlans", mock.Anything)
	})

	t.Run("invalid override", func(t *testing.T) {
		h := newHarness(t, nil)
		bad := &preference.Preferences{
			Weights: preference.NewWeights(decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, decimal.Zero),
		}

		_, err := h.svc.Recommend(context.Background(), uuid.New(), bad, false)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		h.store.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		h := newHarness(t, nil)
		cust := newCustomer(12)
		h.store.On("GetCustomer", mock.Anything, cust.ID).Return(cust, nil)

		set, err := h.svc.Recommend(context.Background(), cust.ID, costOnly(), false)
		require.NoError(t, err)
		assert.Equal(t, cust.ID, set.CustomerID)
		assert.Len(t, set.Recommendations, 3)
	})
}
