package rest

import (
	"context"
	"net/http"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/errors"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/preference"
)

func (h *Handler) createRecommendations(ctx context.Context, r *http.Request) (interface{}, error) {
	var req RecommendationRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	var override *preference.Preferences
	if req.Preferences != nil {
		override = req.Preferences.toPreferences(req.CustomerID, h.clock.Now())
	}

	return h.services.Recommendations.Recommend(ctx, req.CustomerID, override, req.includeSwitching())
}

// getRecommendations serves the cached set only; it never triggers a new run.
func (h *Handler) getRecommendations(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}

	if _, err := h.services.Store.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	set, ok := h.services.Recommendations.Cached(ctx, customerID)
	if !ok {
		return nil, errors.NewNotFoundError("recommendations").
			WithDetails(map[string]interface{}{"resource": "recommendations", "customer_id": customerID.String()})
	}
	return set, nil
}

func (h *Handler) deleteRecommendations(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}
	h.services.Recommendations.Invalidate(ctx, customerID)
	return nil, nil
}
