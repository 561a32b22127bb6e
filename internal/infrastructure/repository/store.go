package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/recommendation"
)

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the PostgreSQL implementation of every persistence port the services declare.
type Store struct {
	db DB
}

// NewStore creates a store over a pool or an open transaction.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.db, fn)
}

// CreateCustomer inserts a customer and any usage it already carries.
func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO customers (
				id, external_id, current_plan_id, contract_end_date,
				early_termination_fee, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.ExternalID, c.CurrentPlanID, c.ContractEndDate,
			c.EarlyTerminationFee, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return upsertUsage(ctx, tx, c.ID, c.Usage)
	})
	return WrapRepositoryError(err, "create customer", "customer")
}

const customerColumns = `
	id, external_id, current_plan_id, contract_end_date,
	early_termination_fee, created_at, updated_at`

// GetCustomer returns the customer with its usage history ordered by period.
func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return s.loadCustomer(ctx, row)
}

func (s *Store) GetCustomerByExternalID(ctx context.Context, externalID string) (*customer.Customer, error) {
	row := s.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE external_id = $1`, externalID)
	return s.loadCustomer(ctx, row)
}

// DeleteCustomer erases a customer. Usage, preferences, recommendation history and
// feedback go with it through ON DELETE CASCADE.
func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	return WrapRepositoryError(err, "delete customer", "customer")
}

func (s *Store) loadCustomer(ctx context.Context, row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	var contractEnd *time.Time
	err := row.Scan(
		&c.ID, &c.ExternalID, &c.CurrentPlanID, &contractEnd,
		&c.EarlyTerminationFee, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, WrapRepositoryError(err, "get customer", "customer")
	}
	if contractEnd != nil {
		end := contractEnd.UTC()
		c.ContractEndDate = &end
	}

	rows, err := s.db.Query(ctx, `
		SELECT usage_date, kwh_usage
		FROM customer_usage
		WHERE customer_id = $1
		ORDER BY usage_date`, c.ID)
	if err != nil {
		return nil, WrapRepositoryError(err, "get usage", "usage")
	}
	c.Usage, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (customer.UsageRecord, error) {
		var rec customer.UsageRecord
		err := r.Scan(&rec.Period, &rec.KWh)
		rec.Period = rec.Period.UTC()
		return rec, err
	})
	if err != nil {
		return nil, WrapRepositoryError(err, "scan usage", "usage")
	}
	return &c, nil
}

// SaveUsage upserts records by period. Existing months are overwritten.
func (s *Store) SaveUsage(ctx context.Context, customerID uuid.UUID, records []customer.UsageRecord) error {
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE customers SET updated_at = NOW() WHERE id = $1`, customerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return upsertUsage(ctx, tx, customerID, records)
	})
	return WrapRepositoryError(err, "save usage", "customer")
}

func upsertUsage(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, records []customer.UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO customer_usage (customer_id, usage_date, kwh_usage)
			VALUES ($1, $2, $3)
			ON CONFLICT (customer_id, usage_date) DO UPDATE SET kwh_usage = EXCLUDED.kwh_usage`,
			customerID, r.Period, r.KWh)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (s *Store) CreateSupplier(ctx context.Context, sup *plan.Supplier) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO suppliers (id, name, rating, customer_service_rating, website, is_active)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		sup.ID, sup.Name, nullDecimal(sup.Rating), nullDecimal(sup.CustomerServiceRating),
		sup.Website, sup.Active,
	)
	return WrapRepositoryError(err, "create supplier", "supplier")
}

const supplierSelect = `
	SELECT id, name, rating, customer_service_rating, COALESCE(website, ''), is_active
	FROM suppliers`

func scanSupplier(row pgx.Row) (*plan.Supplier, error) {
	var sup plan.Supplier
	var rating, csRating decimal.NullDecimal
	if err := row.Scan(&sup.ID, &sup.Name, &rating, &csRating, &sup.Website, &sup.Active); err != nil {
		return nil, err
	}
	sup.Rating = decimalPtr(rating)
	sup.CustomerServiceRating = decimalPtr(csRating)
	return &sup, nil
}

// ListSuppliers returns suppliers ordered by name.
func (s *Store) ListSuppliers(ctx context.Context, activeOnly bool) ([]*plan.Supplier, error) {
	rows, err := s.db.Query(ctx, supplierSelect+` WHERE is_active OR NOT $1 ORDER BY name, id`, activeOnly)
	if err != nil {
		return nil, WrapRepositoryError(err, "list suppliers", "supplier")
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (*plan.Supplier, error) {
		return scanSupplier(r)
	})
	if err != nil {
		return nil, WrapRepositoryError(err, "scan suppliers", "supplier")
	}
	return out, nil
}

func (s *Store) GetSupplier(ctx context.Context, id uuid.UUID) (*plan.Supplier, error) {
	sup, err := scanSupplier(s.db.QueryRow(ctx, supplierSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, WrapRepositoryError(err, "get supplier", "supplier")
	}
	return sup, nil
}

// CreatePlan inserts a plan. The supplier must already exist.
func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO plans (
			id, supplier_id, name, description, rate_type, rate_per_kwh, monthly_fee,
			contract_length_months, early_termination_fee, cancellation_fee,
			renewable_percentage, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.SupplierID, p.Name, p.Description, string(p.RateKind), p.RatePerKWh, p.MonthlyFee,
		p.ContractLengthMonths, p.EarlyTerminationFee, p.CancellationFee,
		p.RenewablePercentage, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	return WrapRepositoryError(err, "create plan", "plan")
}

const planSelect = `
	SELECT p.id, p.supplier_id, p.name, COALESCE(p.description, ''), p.rate_type,
		p.rate_per_kwh, p.monthly_fee, p.contract_length_months, p.early_termination_fee,
		p.cancellation_fee, p.renewable_percentage, p.is_active, p.created_at, p.updated_at,
		s.name, s.rating, s.customer_service_rating, COALESCE(s.website, ''), s.is_active
	FROM plans p
	JOIN suppliers s ON s.id = p.supplier_id`

func scanPlan(row pgx.Row) (*plan.Plan, error) {
	var p plan.Plan
	var sup plan.Supplier
	var rateKind string
	var rating, csRating decimal.NullDecimal

	err := row.Scan(
		&p.ID, &p.SupplierID, &p.Name, &p.Description, &rateKind,
		&p.RatePerKWh, &p.MonthlyFee, &p.ContractLengthMonths, &p.EarlyTerminationFee,
		&p.CancellationFee, &p.RenewablePercentage, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		&sup.Name, &rating, &csRating, &sup.Website, &sup.Active,
	)
	if err != nil {
		return nil, err
	}

	p.RateKind = plan.RateKind(rateKind)
	sup.ID = p.SupplierID
	sup.Rating = decimalPtr(rating)
	sup.CustomerServiceRating = decimalPtr(csRating)
	p.Supplier = &sup
	return &p, nil
}

// ListActivePlans returns the active catalog with suppliers resolved, ordered by name.
func (s *Store) ListActivePlans(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := s.db.Query(ctx, planSelect+` WHERE p.is_active ORDER BY p.name, p.id`)
	if err != nil {
		return nil, WrapRepositoryError(err, "list plans", "plan")
	}
	plans, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (*plan.Plan, error) {
		return scanPlan(r)
	})
	if err != nil {
		return nil, WrapRepositoryError(err, "scan plans", "plan")
	}
	return plans, nil
}

// GetPlan returns a plan whether or not it is active, since customers may sit on retired plans.
func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, planSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, WrapRepositoryError(err, "get plan", "plan")
	}
	return p, nil
}

func (s *Store) GetPreferences(ctx context.Context, customerID uuid.UUID) (*preference.Preferences, error) {
	p := preference.Preferences{CustomerID: customerID}
	var maxMonths *int
	err := s.db.QueryRow(ctx, `
		SELECT cost_savings_weight, flexibility_weight, renewable_weight, supplier_rating_weight,
			min_renewable_percentage, max_contract_months, avoid_variable_rates, updated_at
		FROM customer_preferences
		WHERE customer_id = $1`, customerID,
	).Scan(
		&p.Weights.Cost, &p.Weights.Flexibility, &p.Weights.Renewable, &p.Weights.Rating,
		&p.Constraints.MinRenewablePercentage, &maxMonths, &p.Constraints.AvoidVariableRates, &p.UpdatedAt,
	)
	if err != nil {
		return nil, WrapRepositoryError(err, "get preferences", "preferences")
	}
	p.Constraints.MaxContractMonths = maxMonths
	return &p, nil
}

// SavePreferences replaces the customer's stored preferences.
func (s *Store) SavePreferences(ctx context.Context, p *preference.Preferences) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO customer_preferences (
			customer_id, cost_savings_weight, flexibility_weight, renewable_weight,
			supplier_rating_weight, min_renewable_percentage, max_contract_months,
			avoid_variable_rates, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (customer_id) DO UPDATE SET
			cost_savings_weight      = EXCLUDED.cost_savings_weight,
			flexibility_weight       = EXCLUDED.flexibility_weight,
			renewable_weight         = EXCLUDED.renewable_weight,
			supplier_rating_weight   = EXCLUDED.supplier_rating_weight,
			min_renewable_percentage = EXCLUDED.min_renewable_percentage,
			max_contract_months      = EXCLUDED.max_contract_months,
			avoid_variable_rates     = EXCLUDED.avoid_variable_rates,
			updated_at               = EXCLUDED.updated_at`,
		p.CustomerID, p.Weights.Cost, p.Weights.Flexibility, p.Weights.Renewable, p.Weights.Rating,
		p.Constraints.MinRenewablePercentage, p.Constraints.MaxContractMonths,
		p.Constraints.AvoidVariableRates, p.UpdatedAt,
	)
	if IsForeignKeyViolation(err) {
		return errors.NewNotFoundError("customer").WithCause(ErrNotFound)
	}
	return WrapRepositoryError(err, "save preferences", "preferences")
}

func (s *Store) DeletePreferences(ctx context.Context, customerID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM customer_preferences WHERE customer_id = $1`, customerID)
	if err == nil && tag.RowsAffected() == 0 {
		err = ErrNotFound
	}
	return WrapRepositoryError(err, "delete preferences", "preferences")
}

// SaveRecommendations appends a generated set to the recommendation history.
func (s *Store) SaveRecommendations(ctx context.Context, set *recommendation.Set) error {
	if set == nil || len(set.Recommendations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range set.Recommendations {
		details, err := json.Marshal(r.ExplanationDetails)
		if err != nil {
			return errors.NewInternalError("failed to encode explanation details").WithCause(err)
		}
		flags := r.RiskFlags
		if flags == nil {
			flags = []recommendation.RiskFlag{}
		}
		risks, err := json.Marshal(flags)
		if err != nil {
			return errors.NewInternalError("failed to encode risk flags").WithCause(err)
		}

		batch.Queue(`
			INSERT INTO recommendations (
				id, customer_id, plan_id, rank, overall_score, cost_score, flexibility_score,
				renewable_score, rating_score, projected_annual_cost, projected_annual_savings,
				switching_cost, explanation, explanation_details, risk_flags, confidence_level,
				created_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			r.ID, set.CustomerID, r.PlanID, r.Rank, r.Scores.Overall, r.Scores.Cost, r.Scores.Flexibility,
			r.Scores.Renewable, r.Scores.Rating, r.ProjectedAnnualCost, r.ProjectedAnnualSavings,
			r.SwitchingCost, r.Explanation, details, risks, string(r.ConfidenceLevel),
			r.CreatedAt, r.ExpiresAt,
		)
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	return WrapRepositoryError(err, "save recommendations", "recommendation")
}

func (s *Store) CreateFeedback(ctx context.Context, f *feedback.Feedback) error {
	var metadata []byte
	if len(f.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(f.Metadata); err != nil {
			return errors.NewValidationError("INVALID_FEEDBACK", "metadata is not serializable").WithCause(err)
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO feedback (
			id, customer_id, recommendation_id, plan_id, feedback_type, rating,
			was_helpful, switched_to_plan, comment, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11)`,
		f.ID, f.CustomerID, f.RecommendationID, f.PlanID, string(f.Type), f.Rating,
		f.WasHelpful, f.SwitchedToPlan, f.Comment, metadata, f.CreatedAt,
	)
	return WrapRepositoryError(err, "create feedback", "feedback")
}

const feedbackSelect = `
	SELECT id, customer_id, recommendation_id, plan_id, feedback_type, rating,
		was_helpful, switched_to_plan, COALESCE(comment, ''), metadata, created_at
	FROM feedback`

func scanFeedback(row pgx.Row) (feedback.Feedback, error) {
	var f feedback.Feedback
	var kind string
	var metadata []byte
	if err := row.Scan(
		&f.ID, &f.CustomerID, &f.RecommendationID, &f.PlanID, &kind, &f.Rating,
		&f.WasHelpful, &f.SwitchedToPlan, &f.Comment, &metadata, &f.CreatedAt,
	); err != nil {
		return f, err
	}
	f.Type = feedback.Type(kind)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return f, fmt.Errorf("decode feedback metadata: %w", err)
		}
	}
	return f, nil
}

func (s *Store) listFeedback(ctx context.Context, query string, args ...any) ([]feedback.Feedback, error) {
	rows, err := s.db.Query(ctx, feedbackSelect+query, args...)
	if err != nil {
		return nil, WrapRepositoryError(err, "list feedback", "feedback")
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (feedback.Feedback, error) {
		return scanFeedback(r)
	})
	if err != nil {
		return nil, WrapRepositoryError(err, "scan feedback", "feedback")
	}
	return out, nil
}

// ListFeedbackByCustomer returns the newest entries first.
func (s *Store) ListFeedbackByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]feedback.Feedback, error) {
	return s.listFeedback(ctx, ` WHERE customer_id = $1 ORDER BY created_at DESC, id LIMIT $2`, customerID, limit)
}

// ListFeedbackByRecommendation returns every entry left on one recommendation, newest first.
func (s *Store) ListFeedbackByRecommendation(ctx context.Context, recommendationID uuid.UUID) ([]feedback.Feedback, error) {
	return s.listFeedback(ctx, ` WHERE recommendation_id = $1 ORDER BY created_at DESC, id`, recommendationID)
}

func (s *Store) ListRecentFeedback(ctx context.Context, limit int) ([]feedback.Feedback, error) {
	return s.listFeedback(ctx, ` ORDER BY created_at DESC, id LIMIT $1`, limit)
}

func (s *Store) GetFeedback(ctx context.Context, id uuid.UUID) (*feedback.Feedback, error) {
	f, err := scanFeedback(s.db.QueryRow(ctx, feedbackSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, WrapRepositoryError(err, "get feedback", "feedback")
	}
	return &f, nil
}

// FeedbackStats aggregates all feedback in the database.
func (s *Store) FeedbackStats(ctx context.Context) (*feedback.Stats, error) {
	stats := &feedback.Stats{
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
		ByType:             make(map[string]int),
	}

	var answeredHelpful, helpful, answeredSwitch, switched int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
			AVG(rating)::float8,
			COUNT(was_helpful),
			COUNT(*) FILTER (WHERE was_helpful),
			COUNT(switched_to_plan),
			COUNT(*) FILTER (WHERE switched_to_plan)
		FROM feedback`,
	).Scan(&stats.Total, &stats.AverageRating, &answeredHelpful, &helpful, &answeredSwitch, &switched)
	if err != nil {
		return nil, WrapRepositoryError(err, "feedback stats", "feedback")
	}
	stats.HelpfulPercentage = percentage(helpful, answeredHelpful)
	stats.SwitchRate = percentage(switched, answeredSwitch)

	if err := s.countInto(ctx, `
		SELECT rating, COUNT(*) FROM feedback WHERE rating IS NOT NULL GROUP BY rating`,
		func(r pgx.Row) error {
			var rating, n int
			if err := r.Scan(&rating, &n); err != nil {
				return err
			}
			stats.RatingDistribution[rating] = n
			return nil
		}); err != nil {
		return nil, err
	}

	if err := s.countInto(ctx, `SELECT feedback_type, COUNT(*) FROM feedback GROUP BY feedback_type`,
		func(r pgx.Row) error {
			var kind string
			var n int
			if err := r.Scan(&kind, &n); err != nil {
				return err
			}
			stats.ByType[kind] = n
			return nil
		}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countInto(ctx context.Context, query string, scan func(pgx.Row) error) error {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return WrapRepositoryError(err, "feedback stats", "feedback")
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return WrapRepositoryError(err, "feedback stats", "feedback")
		}
	}
	return WrapRepositoryError(rows.Err(), "feedback stats", "feedback")
}

func percentage(n, of int) *float64 {
	if of == 0 {
		return nil
	}
	v := float64(n) / float64(of) * 100
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
