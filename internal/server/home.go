package server

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/morezero/cad-bridge/pkg/db"
	"github.com/morezero/cad-bridge/pkg/entity"
	"github.com/morezero/cad-bridge/pkg/protocol"
)

const homeLogPrefix = "server:home"

// homeRecentLimit is how many journal rows the home page shows.
const homeRecentLimit = 20

// homePageTemplate is the HTML for the bridge home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>CAD Bridge</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>CAD Bridge</h1>
  <p class="meta">Protocol {{.Protocol}}. Host thread health, registered operations, and entity registry contents.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Host thread: {{if .Health.Checks.Host}}<span class="stat">OK</span>{{else}}<span class="error">Unreachable</span>{{end}}</p>
    {{if .Health.Checks.Journal}}<p>Journal: {{if deref .Health.Checks.Journal}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>{{end}}
    {{if .Health.Error}}<p class="error">{{.Health.Error}}</p>{{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Operations</h2>
    <p>Registered: <span class="stat">{{len .Operations}}</span> (<a href="/openapi.json">OpenAPI</a>)</p>
    <table>
      <thead><tr><th>Operation</th><th>Endpoint</th></tr></thead>
      <tbody>
        {{range .Operations}}<tr><td>{{.}}</td><td>POST /ops/{{.}}</td></tr>{{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Entities</h2>
    <table>
      <thead><tr><th>Kind</th><th>Registered</th></tr></thead>
      <tbody>
        {{range .Entities}}<tr><td>{{.Kind}}</td><td>{{.Count}}</td></tr>{{end}}
      </tbody>
    </table>
  </section>

  <section>
    <h2>Recent operations</h2>
    {{if not .JournalEnabled}}
    <p>Operation journal is disabled.</p>
    {{else if .RecentError}}
    <p class="error">Could not load journal: {{.RecentError}}</p>
    {{else if not .Recent}}
    <p>No operations journaled yet.</p>
    {{else}}
    <table>
      <thead><tr><th>Time</th><th>Operation</th><th>Transport</th><th>Result</th><th>Duration (ms)</th></tr></thead>
      <tbody>
        {{range .Recent}}
        <tr>
          <td>{{.Created.Format "2006-01-02 15:04:05"}}</td>
          <td>{{.Operation}}</td>
          <td>{{.Transport}}</td>
          <td>{{if .Success}}ok{{else}}<span class="error">{{deref .ErrorType}}</span>{{end}}</td>
          <td>{{printf "%.1f" .DurationMs}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
</body>
</html>
`

type entityCount struct {
	Kind  entity.Kind
	Count int
}

// homeData is the data passed to the home page template.
type homeData struct {
	Protocol       string
	Health         *HealthOutput
	Operations     []string
	Entities       []entityCount
	JournalEnabled bool
	Recent         []db.OperationRecord
	RecentError    string
}

// deref renders optional template values.
func deref(v interface{}) interface{} {
	switch p := v.(type) {
	case *string:
		if p == nil {
			return ""
		}
		return *p
	case *bool:
		return p != nil && *p
	}
	return v
}

// handleHome returns an HTTP handler for the bridge home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Funcs(template.FuncMap{"deref": deref}).Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Protocol:       protocol.Version,
			Health:         s.Health(ctx),
			Operations:     s.bridge.Handlers(),
			JournalEnabled: s.journal != nil,
		}
		stats := s.entities.Stats()
		for _, k := range entity.Kinds {
			data.Entities = append(data.Entities, entityCount{Kind: k, Count: stats[k]})
		}
		if s.journal != nil {
			recent, err := s.journal.Recent(ctx, db.RecentParams{Limit: homeRecentLimit})
			if err != nil {
				data.RecentError = err.Error()
			} else {
				data.Recent = recent
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", homeLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
