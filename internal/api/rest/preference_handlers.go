package rest

import (
	"context"
	"net/http"
)

// putPreferences replaces a customer's preferences. Cached recommendations were ranked
// with the old weights, so they are dropped.
func (h *Handler) putPreferences(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}

	var req PreferencesRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	prefs := req.toPreferences(customerID, h.clock.Now())
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if err := h.services.Store.SavePreferences(ctx, prefs); err != nil {
		return nil, err
	}
	h.services.Recommendations.Invalidate(ctx, customerID)
	return prefs, nil
}

func (h *Handler) getPreferences(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}
	return h.services.Store.GetPreferences(ctx, customerID)
}

func (h *Handler) deletePreferences(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}
	if err := h.services.Store.DeletePreferences(ctx, customerID); err != nil {
		return nil, err
	}
	h.services.Recommendations.Invalidate(ctx, customerID)
	return nil, nil
}
