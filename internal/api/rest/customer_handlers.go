package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
	"github.com/davidleathers/energy-plan-advisor/internal/service/ingestion"
)

// CustomerCreatedResponse returns the stored customer with the outcome of any initial
// usage upload.
type CustomerCreatedResponse struct {
	Customer  *customer.Customer `json:"customer"`
	Ingestion ingestion.Result   `json:"ingestion"`
}

func (h *Handler) createCustomer(ctx context.Context, r *http.Request) (interface{}, error) {
	var req CreateCustomerRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	cust, result, err := h.services.Ingestion.CreateCustomer(ctx, req.toNewCustomer())
	if err != nil {
		return nil, err
	}
	return CustomerCreatedResponse{Customer: cust, Ingestion: result}, nil
}

func (h *Handler) getCustomer(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.services.Store.GetCustomer(ctx, id)
}

// getCustomerByExternalID looks up a customer by the identifier they registered with.
// anonymized=true hashes it first, matching registrations that asked for anonymization.
func (h *Handler) getCustomerByExternalID(ctx context.Context, r *http.Request) (interface{}, error) {
	anonymized, err := queryBool(r, "anonymized", false)
	if err != nil {
		return nil, err
	}
	return h.services.Ingestion.CustomerByExternalID(ctx, r.PathValue("external_id"), anonymized)
}

// deleteCustomer erases the customer and all data held about them.
func (h *Handler) deleteCustomer(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return nil, h.services.Ingestion.DeleteCustomer(ctx, id)
}

// ingestUsageCSV accepts a raw CSV body. The date_column and usage_column query
// parameters override the preferred header names.
func (h *Handler) ingestUsageCSV(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "text/csv") && !strings.HasPrefix(ct, "text/plain") {
		return nil, &ValidationError{Message: "Content-Type must be text/csv"}
	}

	if _, err := h.services.Store.GetCustomer(ctx, id); err != nil {
		return nil, err
	}

	q := r.URL.Query()
	return h.services.Ingestion.IngestCSV(ctx, id, r.Body, q.Get("date_column"), q.Get("usage_column"))
}

func (h *Handler) ingestUsageJSON(ctx context.Context, r *http.Request) (interface{}, error) {
	id, err := pathUUID(r, "id")
	if err != nil {
		return nil, err
	}

	var req IngestUsageRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return nil, err
	}

	if _, err := h.services.Store.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	return h.services.Ingestion.IngestJSON(ctx, id, req.UsageData)
}
