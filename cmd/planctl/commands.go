package main

import (
	"context"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/analysis"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/cache"
	"github.com/davidleathers/energy-plan-advisor/internal/infrastructure/repository"
	"github.com/davidleathers/energy-plan-advisor/internal/service/catalog"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
	"github.com/davidleathers/energy-plan-advisor/internal/service/recommendation"
	"github.com/davidleathers/energy-plan-advisor/internal/service/usage"
)

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "Print the usage profile and plan suitability insights for a usage CSV",
		Flags:  usageFlags(),
		Action: runAnalyze,
	}
}

func recommendCommand() *cli.Command {
	flags := append(usageFlags(),
		&cli.StringFlag{
			Name:     "plans",
			Aliases:  []string{"p"},
			Usage:    "Path to a JSON array of plans with embedded suppliers",
			Required: true,
		},
		&cli.StringFlag{Name: "cost-weight", Usage: "Weight of cost savings (0-1)"},
		&cli.StringFlag{Name: "flexibility-weight", Usage: "Weight of contract flexibility (0-1)"},
		&cli.StringFlag{Name: "renewable-weight", Usage: "Weight of renewable share (0-1)"},
		&cli.StringFlag{Name: "rating-weight", Usage: "Weight of supplier rating (0-1)"},
		&cli.IntFlag{Name: "min-renewable", Usage: "Exclude plans below this renewable percentage"},
		&cli.IntFlag{Name: "max-contract", Usage: "Exclude plans with longer contracts (months)"},
		&cli.BoolFlag{Name: "avoid-variable", Usage: "Exclude variable rate plans"},
		&cli.StringFlag{Name: "current-plan", Usage: "ID of the plan the customer is on today"},
		&cli.TimestampFlag{Name: "contract-end", Layout: "2006-01-02", Usage: "End date of the current contract"},
		&cli.StringFlag{Name: "etf", Value: "0", Usage: "Early termination fee of the current contract"},
		&cli.BoolFlag{Name: "no-switching", Usage: "Skip switching cost analysis"},
	)
	return &cli.Command{
		Name:   "recommend",
		Usage:  "Rank plans from a JSON catalog against a usage CSV",
		Flags:  flags,
		Action: runRecommend,
	}
}

type analyzeOutput struct {
	RecordsProcessed int            `json:"records_processed"`
	Warnings         []string       `json:"warnings,omitempty"`
	Analysis         analysis.Usage `json:"usage_analysis"`
}

func runAnalyze(c *cli.Context) error {
	records, result, err := readUsage(c)
	if err != nil {
		return err
	}

	analyzer := usage.NewAnalyzer()
	ua := analyzer.Analyze(records)
	ua.Insights = analyzer.PlanSuitabilityInsights(ua)

	return writeJSON(c, analyzeOutput{
		RecordsProcessed: result.RecordsProcessed,
		Warnings:         result.Warnings,
		Analysis:         ua,
	})
}

func runRecommend(c *cli.Context) error {
	ctx := context.Background()
	logger := newLogger(c)
	defer func() { _ = logger.Sync() }()

	records, _, err := readUsage(c)
	if err != nil {
		return err
	}

	plans, err := readPlans(c.String("plans"))
	if err != nil {
		return err
	}

	cust, err := newCustomer(c, records)
	if err != nil {
		return err
	}

	prefs, err := preferencesFromFlags(c, cust.ID)
	if err != nil {
		return err
	}

	store := repository.NewMemoryStore()
	store.LoadPlans(plans)
	if err := store.CreateCustomer(ctx, cust); err != nil {
		return err
	}

	noop := cache.NewNoopCache()
	svc, err := recommendation.NewService(recommendation.Dependencies{
		Store:   store,
		Catalog: catalog.NewCachedCatalog(store, noop, nil, logger, catalog.Config{}),
		Cache:   noop,
		Clock:   clock.RealClock{},
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	set, err := svc.Recommend(ctx, cust.ID, prefs, !c.Bool("no-switching"))
	if err != nil {
		return err
	}
	return writeJSON(c, set)
}

func readUsage(c *cli.Context) ([]customer.UsageRecord, ingestion.Result, error) {
	f, err := os.Open(c.String("usage"))
	if err != nil {
		return nil, ingestion.Result{}, fmt.Errorf("failed to open usage file: %w", err)
	}
	defer f.Close()

	records, result := ingestion.ParseCSV(f, c.String("date-column"), c.String("usage-column"))
	if !result.Success {
		return nil, result, fmt.Errorf("no usable usage rows in %s: %v", c.String("usage"), result.Errors)
	}
	return records, result, nil
}

// planInput lets catalog files omit is_active; plans are active unless it is false.
type planInput struct {
	*plan.Plan
	IsActive *bool `json:"is_active"`
}

func readPlans(path string) ([]*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}

	var inputs []planInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to decode plans file: %w", err)
	}

	plans := make([]*plan.Plan, 0, len(inputs))
	for i, in := range inputs {
		if in.Plan == nil {
			return nil, fmt.Errorf("plan %d is empty", i)
		}
		p := in.Plan
		p.Active = in.IsActive == nil || *in.IsActive
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Supplier != nil {
			if p.Supplier.ID == uuid.Nil {
				p.Supplier.ID = uuid.New()
			}
			p.SupplierID = p.Supplier.ID
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("plan %d (%s): %w", i, p.Name, err)
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func newCustomer(c *cli.Context, records []customer.UsageRecord) (*customer.Customer, error) {
	cust, err := customer.NewCustomer(ingestion.SyntheticID(), time.Now())
	if err != nil {
		return nil, err
	}
	cust.Usage = records

	if raw := c.String("current-plan"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --current-plan: %w", err)
		}
		cust.CurrentPlanID = &id
	}
	if end := c.Timestamp("contract-end"); end != nil {
		cust.ContractEndDate = end
	}

	etf, err := decimal.NewFromString(c.String("etf"))
	if err != nil || etf.IsNegative() {
		return nil, fmt.Errorf("invalid --etf %q", c.String("etf"))
	}
	cust.EarlyTerminationFee = etf
	return cust, nil
}

// preferencesFromFlags returns nil when no preference flag is set, so the engine falls
// back to its defaults.
func preferencesFromFlags(c *cli.Context, customerID uuid.UUID) (*preference.Preferences, error) {
	names := []string{"cost-weight", "flexibility-weight", "renewable-weight", "rating-weight",
		"min-renewable", "max-contract", "avoid-variable"}
	set := false
	for _, n := range names {
		if c.IsSet(n) {
			set = true
			break
		}
	}
	if !set {
		return nil, nil
	}

	weight := func(name string) (decimal.NullDecimal, error) {
		if !c.IsSet(name) {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(c.String(name))
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("invalid --%s: %w", name, err)
		}
		return decimal.NewNullDecimal(d), nil
	}

	prefs := &preference.Preferences{CustomerID: customerID, UpdatedAt: time.Now()}
	var err error
	if prefs.Weights.Cost, err = weight("cost-weight"); err != nil {
		return nil, err
	}
	if prefs.Weights.Flexibility, err = weight("flexibility-weight"); err != nil {
		return nil, err
	}
	if prefs.Weights.Renewable, err = weight("renewable-weight"); err != nil {
		return nil, err
	}
	if prefs.Weights.Rating, err = weight("rating-weight"); err != nil {
		return nil, err
	}

	prefs.Constraints.MinRenewablePercentage = c.Int("min-renewable")
	if c.IsSet("max-contract") {
		months := c.Int("max-contract")
		prefs.Constraints.MaxContractMonths = &months
	}
	prefs.Constraints.AvoidVariableRates = c.Bool("avoid-variable")
	return prefs, nil
}
