package rest

import (
	_ "embed"
	"net/http"
)

// OpenAPISpec is the API contract served at /openapi.yaml and used by ContractValidator.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

func serveOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPISpec)
}
