package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"pulse-tracker-report/internal/errs"
)

func newTestAgentTools() *AgentTools {
	reports := newTestPipeline(&stubEngine{}, newStubCache(), newStubCache())
	return NewAgentTools(&stubTelemetry{}, reports)
}

func TestToolCatalog(t *testing.T) {
	tools := newTestAgentTools().All()
	want := []string{
		"get_afk_status",
		"get_app_usage",
		"get_daily_metrics",
		"get_window_activity",
		"execute_flux_query",
		"generate_productivity_report",
	}
	if len(tools) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Fatalf("tools[%d] = %s, want %s", i, tools[i].Name, name)
		}
	}
}

func TestLookupUnknownToolIsNotFound(t *testing.T) {
	_, err := newTestAgentTools().Lookup("drop_database")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestParamValidation(t *testing.T) {
	at := newTestAgentTools()
	tool, err := at.Lookup("get_afk_status")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	tests := []struct {
		name    string
		params  map[string]interface{}
		wantErr bool
	}{
		{"valid", map[string]interface{}{"date_start": "2025-11-17", "date_end": "2025-11-23"}, false},
		{"missing required", map[string]interface{}{"date_start": "2025-11-17"}, true},
		{"wrong type", map[string]interface{}{"date_start": 20251117.0, "date_end": "2025-11-23"}, true},
		{"unknown parameter", map[string]interface{}{"date_start": "2025-11-17", "date_end": "2025-11-23", "limit": 5.0}, true},
		{"unparseable date", map[string]interface{}{"date_start": "yesterday", "date_end": "2025-11-23"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Call(context.Background(), tt.params)
			if tt.wantErr && !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNestedParamValidation(t *testing.T) {
	at := newTestAgentTools()
	tool, err := at.Lookup("generate_productivity_report")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	base := func() map[string]interface{} {
		return map[string]interface{}{
			"org":        "Turbo",
			"start_date": "2025-11-19",
			"end_date":   "2025-11-19",
			"users":      []interface{}{map[string]interface{}{"id": 1.0, "name": "ben"}},
		}
	}

	if _, err := tool.Call(context.Background(), base()); err != nil {
		t.Fatalf("valid call: %v", err)
	}

	params := base()
	params["users"] = []interface{}{map[string]interface{}{"id": 1.0}}
	if _, err := tool.Call(context.Background(), params); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("missing nested field: error = %v, want ErrValidation", err)
	}

	params = base()
	params["users"] = []interface{}{"ben"}
	if _, err := tool.Call(context.Background(), params); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("non-object array item: error = %v, want ErrValidation", err)
	}

	params = base()
	params["users"] = "ben"
	if _, err := tool.Call(context.Background(), params); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("non-array users: error = %v, want ErrValidation", err)
	}
}

func TestFluxQueryGuard(t *testing.T) {
	at := newTestAgentTools()
	tool, err := at.Lookup("execute_flux_query")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	accepted := []string{
		`from(bucket:"b") |> filter(fn: (r) => r["account_id"] == "0")`,
		`from(bucket:"b") |> filter(fn: (r) => r["account_id"] == '0')`,
		`from(bucket:"b") |> filter(fn: (r) => r["account_id"] == 0)`,
		`from(bucket:"b") |> filter(fn: (r) => r.account_id == "0")`,
		`from(bucket:"b") |> filter(fn: (r) => r.account_id == 0)`,
	}
	for _, query := range accepted {
		if _, err := tool.Call(context.Background(), map[string]interface{}{"query": query}); err != nil {
			t.Fatalf("query %q rejected: %v", query, err)
		}
	}

	rejected := []string{
		`from(bucket:"b") |> range(start: -1h)`,
		`from(bucket:"b") |> filter(fn: (r) => r["user_id"] == "0")`,
		`from(bucket:"b") |> filter(fn: (r) => r["account_id"] == "1")`,
	}
	for _, query := range rejected {
		_, err := tool.Call(context.Background(), map[string]interface{}{"query": query})
		if !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("query %q: error = %v, want ErrValidation", query, err)
		}
	}
}

func TestReportToolReturnsJSON(t *testing.T) {
	at := newTestAgentTools()
	tool, err := at.Lookup("generate_productivity_report")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	result, err := tool.Call(context.Background(), map[string]interface{}{
		"org":        "Turbo",
		"start_date": "2025-11-19",
		"end_date":   "2025-11-19",
		"users":      []interface{}{map[string]interface{}{"id": 1.0, "name": "ben"}},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(result, `"organizations"`) || !strings.Contains(result, `"periodAnalyzed"`) {
		t.Fatalf("result does not look like a serialized report: %s", result)
	}
}
