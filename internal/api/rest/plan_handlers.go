package rest

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/plan"
)

type PlanListResponse struct {
	Plans []*plan.Plan `json:"plans"`
	Total int          `json:"total"`
}

func (h *Handler) listPlans(ctx context.Context, r *http.Request) (interface{}, error) {
	plans, err := h.services.Catalog.ActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*plan.Plan{}
	}
	return PlanListResponse{Plans: plans, Total: len(plans)}, nil
}

func (h *Handler) getPlan(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.services.Catalog.Plan(ctx, id)
}

type SupplierListResponse struct {
	Suppliers []*plan.Supplier `json:"suppliers"`
	Total     int              `json:"total"`
}

// listSuppliers returns active suppliers unless active_only=false.
func (h *Handler) listSuppliers(ctx context.Context, r *http.Request) (interface{}, error) {
	activeOnly, err := queryBool(r, "active_only", true)
	if err != nil {
		return nil, err
	}
	suppliers, err := h.services.Store.ListSuppliers(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if suppliers == nil {
		suppliers = []*plan.Supplier{}
	}
	return SupplierListResponse{Suppliers: suppliers, Total: len(suppliers)}, nil
}

func (h *Handler) getSupplier(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.services.Store.GetSupplier(ctx, id)
}

func (h *Handler) createSupplier(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CreateSupplierRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	s := &plan.Supplier{
		ID:                    uuid.New(),
		Name:                  req.Name,
		Rating:                req.Rating,
		CustomerServiceRating: req.CustomerServiceRating,
		Website:               req.Website,
		Active:                true,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := h.services.Store.CreateSupplier(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// createPlan stores a plan and drops the cached catalog so the next read sees it.
func (h *Handler) createPlan(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CreatePlanRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	p := req.toPlan(h.clock.Now())
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := h.services.Store.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	h.services.Catalog.InvalidateAll(ctx)

	return h.services.Catalog.Plan(ctx, p.ID)
}
