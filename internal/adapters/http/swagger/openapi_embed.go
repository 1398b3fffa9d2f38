package swagger

import _ "embed"

// OpenAPI is the API description served at OpenAPIPath.
//
//go:embed openapi.yaml
var OpenAPI []byte
