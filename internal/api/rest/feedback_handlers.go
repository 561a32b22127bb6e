package rest

import (
	"context"
	"net/http"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/feedback"
)

type FeedbackListResponse struct {
	Feedback []feedback.Feedback `json:"feedback"`
	Total    int                 `json:"total"`
}

func (h *Handler) submitFeedback(ctx context.Context, r *http.Request) (interface{}, error) {
	var req FeedbackRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return h.services.Feedback.Submit(ctx, req.toFeedback())
}

func (h *Handler) feedbackStats(ctx context.Context, r *http.Request) (interface{}, error) {
	return h.services.Feedback.Stats(ctx)
}

func (h *Handler) customerFeedback(ctx context.Context, r *http.Request) (interface{}, error) {
	customerID, err := pathUUID(r, "customer_id")
	if err != nil {
		return nil, err
	}
	limit, err := queryLimit(r)
	if err != nil {
		return nil, err
	}

	entries, err := h.services.Feedback.ForCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	return feedbackList(entries), nil
}

func (h *Handler) recommendationFeedback(ctx context.Context, r *http.Request) (interface{}, error) {
	recommendationID, err := pathUUID(r, "recommendation_id")
	if err != nil {
		return nil, err
	}
	entries, err := h.services.Feedback.ForRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}
	return feedbackList(entries), nil
}

func (h *Handler) getFeedback(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.services.Feedback.Get(ctx, id)
}

func (h *Handler) feedbackSummary(ctx context.Context, r *http.Request) (interface{}, error) {
	limit, err := queryLimit(r)
	if err != nil {
		return nil, err
	}
	return h.services.Feedback.Summary(ctx, limit)
}

func feedbackList(entries []feedback.Feedback) FeedbackListResponse {
	if entries == nil {
		entries = []feedback.Feedback{}
	}
	return FeedbackListResponse{Feedback: entries, Total: len(entries)}
}
