// Package swagger serves the OpenAPI description of the training API and a
// ReDoc page rendering it.
package swagger

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Paths the docs are mounted on.
const (
	DocsPath    = "/api-docs"
	OpenAPIPath = "/openapi.yaml"
)

const redocBundle = "https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"

// Register attaches the docs routes to r.
func Register(r chi.Router) {
	page := []byte(fmt.Sprintf(docsPage, redocBundle, OpenAPIPath))

	r.Get(DocsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	r.Get(OpenAPIPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(OpenAPI)
	})
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>CyberGuardian training API</title>
  </head>
  <body style="margin:0">
    <div id="redoc-container"></div>
    <script src="%s"></script>
    <script>Redoc.init(%q, {suppressWarnings: true}, document.getElementById("redoc-container"));</script>
  </body>
</html>`
