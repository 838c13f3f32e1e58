package handlers

import (
	_ "embed"
	"encoding/json"
	"html"
	"net/http"
	"sort"
	"strings"
)

//go:embed openapi.json
var openAPISpec []byte

const docsHead = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>Media Relay API Docs</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body { margin: 0; padding: 0; }
      redoc { display: block; height: 100vh; }
      noscript ul { font-family: monospace; }
    </style>
  </head>
  <body>
    <noscript>
      <ul>
`

const docsTail = `      </ul>
    </noscript>
    <redoc spec-url="/openapi.json"></redoc>
    <script src="https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"></script>
  </body>
</html>`

var routeMethods = map[string]bool{"get": true, "post": true, "put": true, "patch": true, "delete": true}

// openAPIDocument returns the embedded document with a servers entry pointing
// at PUBLIC_BASE_URL, so "try it" calls reach this deployment.
func (a *App) openAPIDocument() ([]byte, error) {
	if a.PublicBaseURL == "" {
		return openAPISpec, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(openAPISpec, &doc); err != nil {
		return nil, err
	}
	doc["servers"] = []map[string]string{{"url": a.PublicBaseURL}}
	return json.Marshal(doc)
}

// routeIndex lists "METHOD path: summary" for every operation in the document.
func routeIndex() []string {
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(openAPISpec, &doc); err != nil {
		return nil
	}
	var routes []string
	for path, ops := range doc.Paths {
		for method, raw := range ops {
			if !routeMethods[method] {
				continue
			}
			var op struct {
				Summary string `json:"summary"`
			}
			_ = json.Unmarshal(raw, &op)
			routes = append(routes, strings.ToUpper(method)+" "+path+": "+op.Summary)
		}
	}
	sort.Strings(routes)
	return routes
}

func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	doc, err := a.openAPIDocument()
	if err != nil {
		a.log().Error().Err(err).Msg("openapi document")
		a.error(w, http.StatusInternalServerError, "openapi document unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	var page strings.Builder
	page.WriteString(docsHead)
	for _, route := range routeIndex() {
		page.WriteString("        <li>" + html.EscapeString(route) + "</li>\n")
	}
	page.WriteString(docsTail)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page.String()))
}
