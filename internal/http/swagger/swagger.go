package swagger

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
)

const (
	docsURL     = "/docs"
	specYAMLURL = "/docs/openapi.yml"
	specJSONURL = "/docs/openapi.json"
)

// Register serves Swagger UI at /docs together with the API contract in
// both YAML and JSON form. The contract is parsed once so a broken document
// fails at startup instead of in the browser.
func Register(r chi.Router, specYAML []byte) error {
	doc, err := openapi3.NewLoader().LoadFromData(specYAML)
	if err != nil {
		return fmt.Errorf("load openapi spec: %w", err)
	}

	specJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal openapi spec: %w", err)
	}

	title := "API docs"
	if doc.Info != nil && doc.Info.Title != "" {
		title = doc.Info.Title
	}
	page := []byte(renderPage(title, specYAMLURL))

	r.Get(docsURL, serveBytes("text/html; charset=utf-8", page))
	r.Get(specYAMLURL, serveBytes("application/yaml", specYAML))
	r.Get(specJSONURL, serveBytes("application/json", specJSON))

	return nil
}

func serveBytes(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		w.Write(body)
	}
}

func renderPage(title, specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>%s</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.29.3/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.29.3/swagger-ui-bundle.js" crossorigin></script>
<script>
  window.onload = () => {
    window.ui = SwaggerUIBundle({
      url: '%s',
      dom_id: '#swagger-ui',
      deepLinking: true,
      persistAuthorization: true,
    });
  };
</script>
</body>
</html>
`, html.EscapeString(title), specPath)
}
