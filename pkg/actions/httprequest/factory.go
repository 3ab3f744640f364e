package httprequest

import (
	"context"
	"net/http"

	"github.com/dukex/supplyflow/pkg/protocol"
)

// ActionFactory creates HTTP request actions.
type ActionFactory struct {
	client *http.Client
}

// NewActionFactory creates a factory. A nil client means a default client
// with the per-action timeout.
func NewActionFactory(client *http.Client) *ActionFactory {
	return &ActionFactory{client: client}
}

func (f *ActionFactory) Create(_ context.Context, params map[string]any) (protocol.Action, error) {
	return NewAction(params, f.client)
}

func (*ActionFactory) ID() string {
	return "http_request"
}

func (*ActionFactory) Name() string {
	return "HTTP Request"
}

func (*ActionFactory) Description() string {
	return "Calls an outbound webhook. Without a body, the triggering event is sent as JSON."
}

func (*ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"title":       "URL",
				"type":        "string",
				"description": "The URL to call. Supports templating against the event.",
				"examples": []string{
					"https://erp.example.com/hooks/receipts",
					"https://erp.example.com/documents/{{.entityId}}",
				},
			},
			"method": map[string]any{
				"type":    "string",
				"default": "POST",
				"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
			},
			"headers": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"body": map[string]any{
				"type":        []string{"string", "object", "array"},
				"description": "Request body. Objects and arrays are sent as JSON.",
			},
			"timeout_ms": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"default": defaultTimeoutMs,
			},
			"retries": map[string]any{
				"type":        "object",
				"description": "Retry configuration for 5xx responses and transport errors",
				"properties": map[string]any{
					"attempts": map[string]any{
						"type":    "integer",
						"default": 1,
						"minimum": 1,
						"maximum": 5, //nolint:mnd // schema bound
					},
					"delay_ms": map[string]any{
						"type":    "integer",
						"default": 0,
						"minimum": 0,
						"maximum": 30000, //nolint:mnd // schema bound
					},
				},
				"additionalProperties": false,
			},
		},
		"required":             []string{"url"},
		"additionalProperties": false,
	}
}
