package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
)

// SeedStore is what Seed writes through.
type SeedStore interface {
	ListSuppliers(ctx context.Context, activeOnly bool) ([]*plan.Supplier, error)
	CreateSupplier(ctx context.Context, s *plan.Supplier) error
	CreatePlan(ctx context.Context, p *plan.Plan) error
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Suppliers int  `json:"suppliers"`
	Plans     int  `json:"plans"`
	Skipped   bool `json:"skipped"`
}

type seedSupplier struct {
	name, rating, serviceRating, website string
	plans                                []seedPlan
}

type seedPlan struct {
	name, description string
	kind              plan.RateKind
	rate, fee         string
	months            int
	etf               string
	renewable         int
}

var devCatalog = []seedSupplier{
	{"Green Power Co", "4.5", "4.3", "https://greenpower.example.com", []seedPlan{
		{"Green Basic", "Affordable green energy for budget-conscious households", plan.RateFixed, "0.095", "5.99", 12, "75.00", 50},
		{"Green Premium", "100% renewable energy with premium service", plan.RateFixed, "0.125", "9.99", 24, "150.00", 100},
		{"Green Flex", "Month-to-month green energy with no commitment", plan.RateVariable, "0.115", "0.00", 1, "0.00", 75},
	}},
	{"EcoEnergy Solutions", "4.2", "4.0", "https://ecoenergy.example.com", []seedPlan{
		{"Eco Saver", "Low-cost energy with environmental responsibility", plan.RateFixed, "0.088", "7.99", 12, "100.00", 35},
		{"Eco Max", "Maximum renewable energy percentage", plan.RateFixed, "0.135", "4.99", 18, "125.00", 100},
	}},
	{"ValueElectric", "3.8", "3.5", "https://valueelectric.example.com", []seedPlan{
		{"Value Basic", "Simple, affordable electricity", plan.RateFixed, "0.082", "9.99", 12, "50.00", 15},
		{"Value Plus", "Better rates with longer commitment", plan.RateFixed, "0.075", "12.99", 24, "175.00", 20},
		{"Value Index", "Rates tied to wholesale market prices", plan.RateIndexed, "0.078", "4.99", 6, "25.00", 10},
	}},
	{"SunState Energy", "4.7", "4.6", "https://sunstate.example.com", []seedPlan{
		{"Solar Standard", "Solar-powered energy at competitive rates", plan.RateFixed, "0.105", "6.99", 12, "100.00", 85},
		{"Solar Premium", "100% solar with time-of-use savings", plan.RateTimeOfUse, "0.098", "8.99", 24, "200.00", 100},
		{"Solar Flex", "Flexible solar plan with no contract", plan.RateVariable, "0.118", "0.00", 1, "0.00", 90},
	}},
	{"Budget Power", "3.5", "3.2", "https://budgetpower.example.com", []seedPlan{
		{"Budget Basic", "Lowest rates in the market", plan.RateFixed, "0.072", "14.99", 24, "200.00", 5},
		{"Budget Flex", "Low rates without long-term commitment", plan.RateVariable, "0.085", "8.99", 3, "0.00", 10},
	}},
}

// DevCatalog builds the development catalog with fresh IDs. Each plan embeds its supplier.
func DevCatalog(now time.Time) ([]*plan.Supplier, []*plan.Plan) {
	var suppliers []*plan.Supplier
	var plans []*plan.Plan
	for _, s := range devCatalog {
		rating := decimal.RequireFromString(s.rating)
		serviceRating := decimal.RequireFromString(s.serviceRating)
		sup := &plan.Supplier{
			ID:                    uuid.New(),
			Name:                  s.name,
			Rating:                &rating,
			CustomerServiceRating: &serviceRating,
			Website:               s.website,
			Active:                true,
		}
		suppliers = append(suppliers, sup)

		for _, sp := range s.plans {
			plans = append(plans, &plan.Plan{
				ID:                   uuid.New(),
				SupplierID:           sup.ID,
				Supplier:             sup,
				Name:                 sp.name,
				Description:          sp.description,
				RateKind:             sp.kind,
				RatePerKWh:           decimal.RequireFromString(sp.rate),
				MonthlyFee:           decimal.RequireFromString(sp.fee),
				ContractLengthMonths: sp.months,
				EarlyTerminationFee:  decimal.RequireFromString(sp.etf),
				CancellationFee:      decimal.Zero,
				RenewablePercentage:  sp.renewable,
				Active:               true,
				CreatedAt:            now,
				UpdatedAt:            now,
			})
		}
	}
	return suppliers, plans
}

// Seed loads the development catalog. A store that already holds any supplier is left
// untouched.
func Seed(ctx context.Context, store SeedStore, now time.Time) (SeedResult, error) {
	existing, err := store.ListSuppliers(ctx, false)
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to list suppliers: %w", err)
	}
	if len(existing) > 0 {
		return SeedResult{Skipped: true}, nil
	}

	suppliers, plans := DevCatalog(now)
	var res SeedResult
	for _, s := range suppliers {
		if err := store.CreateSupplier(ctx, s); err != nil {
			return res, fmt.Errorf("failed to create supplier %s: %w", s.Name, err)
		}
		res.Suppliers++
	}
	for _, p := range plans {
		if err := store.CreatePlan(ctx, p); err != nil {
			return res, fmt.Errorf("failed to create plan %s: %w", p.Name, err)
		}
		res.Plans++
	}
	return res, nil
}
