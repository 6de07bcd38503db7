package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/morezero/cad-bridge/pkg/protocol"
)

const openAPILogPrefix = "server:openapi"

// openAPI3 types for describing the HTTP operation endpoints.
type openAPI3Spec struct {
	OpenAPI string                      `json:"openapi"`
	Info    openAPI3Info                `json:"info"`
	Paths   map[string]openAPI3PathItem `json:"paths"`
}

type openAPI3Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type openAPI3PathItem struct {
	Post *openAPI3Operation `json:"post,omitempty"`
}

type openAPI3Operation struct {
	Summary     string                      `json:"summary"`
	OperationID string                      `json:"operationId"`
	Parameters  []openAPI3Parameter         `json:"parameters,omitempty"`
	RequestBody *openAPI3RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]openAPI3Response `json:"responses"`
}

type openAPI3Parameter struct {
	Name     string                 `json:"name"`
	In       string                 `json:"in"`
	Required bool                   `json:"required"`
	Schema   map[string]interface{} `json:"schema"`
}

type openAPI3RequestBody struct {
	Content map[string]openAPI3MediaType `json:"content"`
}

type openAPI3Response struct {
	Description string                       `json:"description"`
	Content     map[string]openAPI3MediaType `json:"content,omitempty"`
}

type openAPI3MediaType struct {
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// responseSchema describes protocol.OperationResponse.
var responseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":           map[string]interface{}{"type": "string"},
		"success":      map[string]interface{}{"type": "boolean"},
		"data":         map[string]interface{}{},
		"error":        map[string]interface{}{"type": "string"},
		"error_type":   map[string]interface{}{"type": "string"},
		"failure_kind": map[string]interface{}{"type": "string"},
	},
	"required": []string{"success"},
}

// buildOpenAPISpec builds an OpenAPI 3.0 spec with one POST path per operation.
func buildOpenAPISpec(operations []string) *openAPI3Spec {
	jsonResponse := func(description string) openAPI3Response {
		return openAPI3Response{
			Description: description,
			Content:     map[string]openAPI3MediaType{"application/json": {Schema: responseSchema}},
		}
	}

	paths := make(map[string]openAPI3PathItem, len(operations))
	for _, name := range operations {
		paths["/ops/"+name] = openAPI3PathItem{
			Post: &openAPI3Operation{
				Summary:     name,
				OperationID: name,
				Parameters: []openAPI3Parameter{
					{Name: "timeoutMs", In: "query", Schema: map[string]interface{}{"type": "integer", "minimum": 0}},
					{Name: HeaderRequestID, In: "header", Schema: map[string]interface{}{"type": "string"}},
					{Name: HeaderProtocol, In: "header", Schema: map[string]interface{}{"type": "string"}},
				},
				RequestBody: &openAPI3RequestBody{
					Content: map[string]openAPI3MediaType{
						"application/json": {Schema: map[string]interface{}{"type": "object"}},
					},
				},
				Responses: map[string]openAPI3Response{
					"200": jsonResponse("Success"),
					"400": jsonResponse("Invalid request or incompatible protocol"),
					"404": jsonResponse("Unknown operation"),
					"422": jsonResponse("Handler failure"),
					"503": jsonResponse("Too many concurrent requests"),
					"504": jsonResponse("Timed out waiting for the host thread"),
				},
			},
		}
	}
	return &openAPI3Spec{
		OpenAPI: "3.0.0",
		Info: openAPI3Info{
			Title:       "cad-bridge",
			Description: "Operations executed on the CAD host's main thread",
			Version:     protocol.Version,
		},
		Paths: paths,
	}
}

func (s *Server) handleOpenAPI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		spec := buildOpenAPISpec(s.bridge.Handlers())
		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, spec)
		slog.Debug(fmt.Sprintf("%s - served spec with %d paths", openAPILogPrefix, len(spec.Paths)))
	}
}
