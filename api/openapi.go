package api

import _ "embed"

// OpenAPISpec is the raw OpenAPI 3.1 document served at /openapi.json.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
