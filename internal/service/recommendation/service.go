package recommendation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/telemetry"
	"github.com/davidleathers/energy-plan-advisor/internal/metrics"
	"github.com/davidleathers/energy-plan-advisor/internal/service/contract"
	"github.com/davidleathers/energy-plan-advisor/internal/service/cost"
	"github.com/davidleathers/energy-plan-advisor/internal/service/scoring"
	"github.com/davidleathers/energy-plan-advisor/internal/service/usage"
)

const (
	serviceName = "recommendation"
	cacheName   = "recommendation"

	// DefaultTopN is how many plans a set carries when Config.TopN is unset.
	DefaultTopN = 3
	// MinMonthsOfData is the shortest usage history Recommend accepts.
	MinMonthsOfData = 3
)

// Config tunes the orchestrator.
type Config struct {
	TopN     int
	CacheTTL time.Duration
	// Timeout bounds Recommend; zero disables it.
	Timeout        time.Duration
	DefaultWeights *preference.Weights
}

// Dependencies holds all collaborators of the orchestrator.
type Dependencies struct {
	Store     Store
	Catalog   Catalog
	Cache     Cache
	Usage     *usage.Analyzer
	Costs     *cost.Calculator
	Scoring   *scoring.Engine
	Contracts *contract.Analyzer
	Clock     clock.Clock
	Logger    *zap.Logger
	Metrics   Recorder
	Tracer    trace.Tracer
	Config    Config
}

type service struct {
	store     Store
	catalog   Catalog
	cache     Cache
	usage     *usage.Analyzer
	costs     *cost.Calculator
	scoring   *scoring.Engine
	contracts *contract.Analyzer
	clock     clock.Clock
	logger    *zap.Logger
	metrics   Recorder
	tracer    trace.Tracer
	cfg       Config
}

// NewService creates the recommendation orchestrator. Store and Catalog are required;
// every other collaborator has a working default.
func NewService(deps Dependencies) (Service, error) {
	if deps.Store == nil {
		return nil, errors.NewInternalError("recommendation store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.NewInternalError("plan catalog is required")
	}

	s := &service{
		store:     deps.Store,
		catalog:   deps.Catalog,
		cache:     deps.Cache,
		usage:     deps.Usage,
		costs:     deps.Costs,
		scoring:   deps.Scoring,
		contracts: deps.Contracts,
		clock:     deps.Clock,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		tracer:    deps.Tracer,
		cfg:       deps.Config,
	}

	if s.cache == nil {
		s.cache = cache.NewNoopCache()
	}
	if s.usage == nil {
		s.usage = usage.NewAnalyzer()
	}
	if s.costs == nil {
		s.costs = cost.NewCalculator()
	}
	if s.scoring == nil {
		s.scoring = scoring.NewEngine()
	}
	if s.contracts == nil {
		s.contracts = contract.NewAnalyzer()
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.tracer == nil {
		s.tracer = tracenoop.NewTracerProvider().Tracer(serviceName)
	}
	if s.cfg.TopN <= 0 {
		s.cfg.TopN = DefaultTopN
	}
	if s.cfg.CacheTTL <= 0 {
		s.cfg.CacheTTL = cache.RecommendationTTL
	}

	return s, nil
}

func (s *service) Recommend(ctx context.Context, customerID uuid.UUID, override *preference.Preferences, includeSwitching bool) (*recommendation.Set, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}

	cust, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if months := cust.MonthsOfData(); months < MinMonthsOfData {
		return nil, errors.NewValidationError("INSUFFICIENT_USAGE_DATA",
			fmt.Sprintf("at least %d months of usage data are required, found %d", MinMonthsOfData, months)).
			WithDetails(map[string]interface{}{"months_available": months, "months_required": MinMonthsOfData})
	}

	return s.Generate(ctx, cust, override, includeSwitching)
}

func (s *service) Generate(ctx context.Context, cust *customer.Customer, override *preference.Preferences, includeSwitching bool) (set *recommendation.Set, err error) {
	started := time.Now()

	ctx, span := telemetry.StartServiceSpan(ctx, s.tracer, serviceName, "generate",
		attribute.String("customer.id", cust.ID.String()),
		attribute.Bool("switching_analysis", includeSwitching),
	)
	defer span.End()

	defer func() {
		elapsed := float64(time.Since(started).Microseconds()) / 1000
		count := 0
		if set != nil {
			count = len(set.Recommendations)
		}
		s.metrics.RecordRecommendation(ctx, elapsed, err == nil, count)
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	prefs, err := s.resolvePreferences(ctx, cust.ID, override)
	if err != nil {
		return nil, err
	}

	// Read before the catalog so a concurrent catalog write marks this set stale.
	version, versionErr := s.catalogVersion(ctx)

	plans, err := s.catalog.ActivePlans(ctx)
	if err != nil {
		return nil, err
	}

	eligible, filtered := filterPlans(plans, prefs.Constraints)
	s.recordFiltered(ctx, filtered)

	now := s.clock.Now()
	records := customer.SortUsage(cust.Usage)
	monthsOfData := len(records)

	costs := s.costs.AllCosts(records, eligible)

	currentAnnual, err := s.currentAnnualCost(ctx, cust, records)
	if err != nil {
		return nil, err
	}

	top := s.rank(ctx, eligible, costs, prefs.Weights)

	set = &recommendation.Set{
		CustomerID:        cust.ID,
		Recommendations:   make([]recommendation.Recommendation, 0, len(top)),
		FilteredPlans:     filtered,
		CurrentAnnualCost: currentAnnual,
		BestSavings:       decimal.Zero,
		Warnings:          warningsFor(monthsOfData, len(plans), len(eligible)),
		GeneratedAt:       now,
		ExpiresAt:         now.Add(s.cfg.CacheTTL),
	}

	switchingCost := s.switchingCost(cust, includeSwitching, now)

	for i, sp := range top {
		pc := costs[sp.Plan.ID]

		savings := decimal.Zero
		if currentAnnual != nil {
			savings = currentAnnual.Sub(pc.AnnualCost)
		}

		text, details := explain(sp, savings, s.scoring.ExplainScore(sp))
		risks := assessRisks(sp.Plan, monthsOfData)

		rec := recommendation.Recommendation{
			ID:           uuid.New(),
			CustomerID:   cust.ID,
			Rank:         i + 1,
			PlanID:       sp.Plan.ID,
			PlanName:     sp.Plan.Name,
			SupplierName: sp.Plan.SupplierName(),
			Scores: recommendation.Scores{
				Overall:     sp.OverallScore,
				Cost:        sp.CostScore,
				Flexibility: sp.FlexibilityScore,
				Renewable:   sp.RenewableScore,
				Rating:      sp.RatingScore,
			},
			ProjectedAnnualCost:    pc.AnnualCost,
			ProjectedMonthlyCost:   pc.MonthlyAverage,
			ProjectedAnnualSavings: savings,
			SwitchingCost:          switchingCost,
			NetFirstYearSavings:    savings.Sub(switchingCost),
			Explanation:            text,
			ExplanationDetails:     details,
			RiskFlags:              risks,
			ConfidenceLevel:        confidenceFor(monthsOfData, risks),
			CreatedAt:              now,
			ExpiresAt:              set.ExpiresAt,
		}

		if includeSwitching && currentAnnual != nil {
			ca := s.contracts.AnalyzeSwitchTiming(contract.TimingInput{
				ContractEnd:           cust.ContractEndDate,
				EarlyTerminationFee:   cust.EarlyTerminationFee,
				CurrentMonthlyCost:    currentAnnual.Div(decimal.NewFromInt(12)).Round(2),
				NewMonthlyCost:        pc.MonthlyAverage,
				NewPlanContractMonths: sp.Plan.ContractLengthMonths,
				Today:                 now,
			})
			rec.SwitchingAnalysis = &ca
			s.metrics.RecordContractDecision(ctx, string(ca.Recommendation))
		}

		if savings.GreaterThan(set.BestSavings) {
			set.BestSavings = savings
		}
		set.Recommendations = append(set.Recommendations, rec)
	}

	if monthsOfData > 0 {
		ua := s.usage.Analyze(records)
		ua.Insights = s.usage.PlanSuitabilityInsights(ua)
		set.UsageAnalysis = &ua
	}

	if includeSwitching && cust.ContractEndDate != nil {
		w := s.contracts.SwitchingWindows(cust.ContractEndDate, now)
		set.SwitchingWindows = &w
	}

	elapsed := time.Since(started)
	set.ProcessingTimeMS = elapsed.Milliseconds()

	s.persist(ctx, set)
	if versionErr == nil {
		s.cacheSet(ctx, set, version)
	}

	span.SetAttributes(
		attribute.Int("plans.evaluated", len(eligible)),
		attribute.Int("plans.filtered", len(filtered)),
		attribute.Int("recommendations.count", len(set.Recommendations)),
	)
	span.SetStatus(codes.Ok, "")

	s.logger.Info("generated recommendations",
		zap.String("customer_id", cust.ID.String()),
		zap.Int("plans_evaluated", len(eligible)),
		zap.Int("plans_filtered", len(filtered)),
		zap.Int("recommendations", len(set.Recommendations)),
		zap.Duration("processing_time", elapsed),
	)

	return set, nil
}

func (s *service) Cached(ctx context.Context, customerID uuid.UUID) (*recommendation.Set, bool) {
	key := recommendation.CacheKey(customerID)
	ctx, span := telemetry.StartCacheSpan(ctx, s.tracer, "get", key)
	defer span.End()

	var entry cachedSet
	err := s.cache.GetJSON(ctx, key, &entry)
	if err == nil && !s.current(ctx, entry) {
		s.drop(ctx, key)
		err = cache.ErrCacheKeyNotFound{Key: key}
	}
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	switch {
	case err == nil:
		s.metrics.RecordCacheResult(ctx, cacheName, metrics.CacheHit)
		return entry.Set, true
	case cache.IsNotFound(err):
		s.metrics.RecordCacheResult(ctx, cacheName, metrics.CacheMiss)
	default:
		s.metrics.RecordCacheResult(ctx, cacheName, metrics.CacheError)
		s.logger.Warn("recommendation cache read failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
	}
	return nil, false
}

func (s *service) Invalidate(ctx context.Context, customerID uuid.UUID) {
	s.drop(ctx, recommendation.CacheKey(customerID))
}

func (s *service) drop(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("recommendation cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// cachedSet pairs a set with the catalog version it was ranked against.
type cachedSet struct {
	CatalogVersion string              `json:"catalog_version"`
	Set            *recommendation.Set `json:"set"`
}

// catalogVersion reads the stamp the catalog rewrites on every plan change. A missing
// stamp is the empty version.
func (s *service) catalogVersion(ctx context.Context) (string, error) {
	var v string
	if err := s.cache.GetJSON(ctx, cache.CatalogVersionKey, &v); err != nil && !cache.IsNotFound(err) {
		return "", err
	}
	return v, nil
}

// current reports whether entry was ranked against the catalog as it stands now.
func (s *service) current(ctx context.Context, entry cachedSet) bool {
	if entry.Set == nil {
		return false
	}
	v, err := s.catalogVersion(ctx)
	return err == nil && v == entry.CatalogVersion
}

// resolvePreferences picks the override, then stored preferences, then defaults.
func (s *service) resolvePreferences(ctx context.Context, customerID uuid.UUID, override *preference.Preferences) (*preference.Preferences, error) {
	if override != nil {
		return override, nil
	}

	stored, err := s.store.GetPreferences(ctx, customerID)
	switch {
	case err == nil && stored != nil:
		return stored, nil
	case err != nil && !errors.IsType(err, errors.ErrorTypeNotFound):
		return nil, err
	}

	prefs := preference.Defaults(customerID)
	if s.cfg.DefaultWeights != nil {
		prefs.Weights = *s.cfg.DefaultWeights
	}
	return prefs, nil
}

// currentAnnualCost prices the customer's current plan, which may no longer be active.
// An unknown current plan leaves the savings baseline unset.
func (s *service) currentAnnualCost(ctx context.Context, cust *customer.Customer, records []customer.UsageRecord) (*decimal.Decimal, error) {
	if cust.CurrentPlanID == nil {
		return nil, nil
	}

	current, err := s.catalog.Plan(ctx, *cust.CurrentPlanID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			s.logger.Warn("current plan not found, skipping savings baseline",
				zap.String("customer_id", cust.ID.String()),
				zap.String("plan_id", cust.CurrentPlanID.String()),
			)
			return nil, nil
		}
		return nil, err
	}

	annual := s.costs.AnnualCost(records, current)
	return &annual, nil
}

func (s *service) rank(ctx context.Context, eligible []*plan.Plan, costs map[uuid.UUID]cost.PlanCost, weights preference.Weights) []scoring.ScoredPlan {
	_, span := telemetry.StartServiceSpan(ctx, s.tracer, serviceName, "score",
		attribute.Int("plans.count", len(eligible)))
	defer span.End()

	scored := s.scoring.ScorePlans(eligible, costs, weights)
	sortScored(scored)

	if len(scored) > s.cfg.TopN {
		scored = scored[:s.cfg.TopN]
	}
	return scored
}

// sortScored orders by overall score descending, then annual cost ascending, then plan id.
func sortScored(scored []scoring.ScoredPlan) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if c := a.AnnualCost.Cmp(b.AnnualCost); c != 0 {
			return c < 0
		}
		return strings.Compare(a.Plan.ID.String(), b.Plan.ID.String()) < 0
	})
}

// switchingCost is the customer's ETF unless switching analysis is off or the contract
// is known to have ended. A missing end date still owes the fee.
func (s *service) switchingCost(cust *customer.Customer, includeSwitching bool, now time.Time) decimal.Decimal {
	if !includeSwitching || cust.ContractEnded(now) {
		return decimal.Zero
	}
	return cust.EarlyTerminationFee
}

func (s *service) recordFiltered(ctx context.Context, filtered []recommendation.FilteredPlan) {
	counts := make(map[recommendation.FilterCode]int, 3)
	for _, f := range filtered {
		counts[f.FilterCode]++
	}
	for code, n := range counts {
		s.metrics.RecordPlansFiltered(ctx, string(code), n)
	}
}

// persist keeps the recommendation history. A failed write never fails the run.
func (s *service) persist(ctx context.Context, set *recommendation.Set) {
	if len(set.Recommendations) == 0 {
		return
	}
	if err := s.store.SaveRecommendations(ctx, set); err != nil {
		s.logger.Warn("failed to save recommendation history",
			zap.String("customer_id", set.CustomerID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) cacheSet(ctx context.Context, set *recommendation.Set, catalogVersion string) {
	key := recommendation.CacheKey(set.CustomerID)
	ctx, span := telemetry.StartCacheSpan(ctx, s.tracer, "set", key)
	defer span.End()

	entry := cachedSet{CatalogVersion: catalogVersion, Set: set}
	if err := s.cache.SetJSON(ctx, key, entry, s.cfg.CacheTTL); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordCacheResult(ctx, cacheName, metrics.CacheError)
		s.logger.Warn("failed to cache recommendations",
			zap.String("customer_id", set.CustomerID.String()),
			zap.Error(err),
		)
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordRecommendation(context.Context, float64, bool, int) {}
func (nopRecorder) RecordPlansFiltered(context.Context, string, int)        {}
func (nopRecorder) RecordCacheResult(context.Context, string, string)       {}
func (nopRecorder) RecordContractDecision(context.Context, string)          {}
