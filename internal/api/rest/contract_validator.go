package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// ContractValidator checks requests and responses against the embedded OpenAPI document.
type ContractValidator struct {
	doc    *openapi3.T
	router routers.Router
}

func NewContractValidator() (*ContractValidator, error) {
	return NewContractValidatorFromData(OpenAPISpec)
}

func NewContractValidatorFromData(spec []byte) (*ContractValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &ContractValidator{doc: doc, router: router}, nil
}

func (cv *ContractValidator) ValidateRequest(ctx context.Context, req *http.Request) error {
	route, pathParams, err := cv.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no matching route found: %w", err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}
	if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}

// ValidateResponse checks a captured response body against the operation's schema for
// the given status.
func (cv *ContractValidator) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	route, pathParams, err := cv.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no matching route found: %w", err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
			Options:    &openapi3filter.Options{ExcludeRequestBody: true},
		},
		Status: status,
		Header: header,
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
		},
	}
	input.SetBodyBytes(body)

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("response validation failed: %w", err)
	}
	return nil
}

// ValidateSchema validates a decoded JSON value against a named component schema.
func (cv *ContractValidator) ValidateSchema(schemaName string, data interface{}) error {
	ref := cv.doc.Components.Schemas[schemaName]
	if ref == nil || ref.Value == nil {
		return fmt.Errorf("schema %s not found", schemaName)
	}
	if err := ref.Value.VisitJSON(data); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
