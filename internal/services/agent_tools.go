package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
)

// Fixed identity triple the agent tools operate under.
const (
	agentAccountID = 0
	agentOrgID     = 0
	agentUserID    = 0
)

// ParamKind enumerates the value kinds a tool parameter accepts.
type ParamKind string

const (
	ParamString  ParamKind = "string"
	ParamInteger ParamKind = "integer"
	ParamNumber  ParamKind = "number"
	ParamBoolean ParamKind = "boolean"
	ParamArray   ParamKind = "array"
	ParamObject  ParamKind = "object"
)

// ParamSpec describes one tool parameter: its kind, whether it is required,
// and for composite kinds the shape of its elements or fields.
type ParamSpec struct {
	Kind        ParamKind
	Required    bool
	Description string
	Items       *ParamSpec           // element spec when Kind is array
	Fields      map[string]ParamSpec // field specs when Kind is object
}

// Tool is one named operation the reasoning agent can call. Parameters are
// validated against the spec before the executor runs; executors never see a
// structurally invalid call.
type Tool struct {
	Name        string
	Description string
	Params      map[string]ParamSpec
	Execute     func(ctx context.Context, params map[string]interface{}) (string, error)
}

// Call validates params against the tool's spec, then dispatches.
func (t Tool) Call(ctx context.Context, params map[string]interface{}) (string, error) {
	if err := validateParams(t.Params, params); err != nil {
		return "", fmt.Errorf("%w: tool %s: %v", errs.ErrValidation, t.Name, err)
	}
	return t.Execute(ctx, params)
}

// validateParams structurally checks a parameter map against its specs.
func validateParams(specs map[string]ParamSpec, params map[string]interface{}) error {
	for name, spec := range specs {
		value, present := params[name]
		if !present || value == nil {
			if spec.Required {
				return fmt.Errorf("missing required parameter %q", name)
			}
			continue
		}
		if err := validateValue(name, spec, value); err != nil {
			return err
		}
	}
	for name := range params {
		if _, known := specs[name]; !known {
			return fmt.Errorf("unknown parameter %q", name)
		}
	}
	return nil
}

func validateValue(name string, spec ParamSpec, value interface{}) error {
	switch spec.Kind {
	case ParamString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter %q must be a string", name)
		}
	case ParamInteger:
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return fmt.Errorf("parameter %q must be an integer", name)
			}
		default:
			return fmt.Errorf("parameter %q must be an integer", name)
		}
	case ParamNumber:
		switch value.(type) {
		case int, int64, float64:
		default:
			return fmt.Errorf("parameter %q must be a number", name)
		}
	case ParamBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", name)
		}
	case ParamArray:
		items, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("parameter %q must be an array", name)
		}
		if spec.Items != nil {
			for i, item := range items {
				if err := validateValue(fmt.Sprintf("%s[%d]", name, i), *spec.Items, item); err != nil {
					return err
				}
			}
		}
	case ParamObject:
		obj, ok := value.(map[string]interface{})
		if !ok {
			return fmt.Errorf("parameter %q must be an object", name)
		}
		return validateParams(spec.Fields, obj)
	default:
		return fmt.Errorf("parameter %q has unknown kind %q", name, spec.Kind)
	}
	return nil
}

// AgentTelemetry is the telemetry access the tools need: the typed getters
// plus the raw escape hatch.
type AgentTelemetry interface {
	TelemetrySource
	QueryRaw(ctx context.Context, fluxQuery string) ([]map[string]interface{}, error)
}

// AgentTools is the tool registry exposed to the reasoning agent.
type AgentTools struct {
	telemetry AgentTelemetry
	reports   *ReportService
}

// NewAgentTools creates the registry.
func NewAgentTools(telemetry AgentTelemetry, reports *ReportService) *AgentTools {
	return &AgentTools{telemetry: telemetry, reports: reports}
}

// All returns every registered tool.
func (at *AgentTools) All() []Tool {
	return []Tool{
		at.afkStatusTool(),
		at.appUsageTool(),
		at.dailyMetricsTool(),
		at.windowActivityTool(),
		at.fluxQueryTool(),
		at.reportTool(),
	}
}

// Lookup returns the named tool.
func (at *AgentTools) Lookup(name string) (Tool, error) {
	for _, tool := range at.All() {
		if tool.Name == name {
			return tool, nil
		}
	}
	return Tool{}, fmt.Errorf("tool %q: %w", name, errs.ErrNotFound)
}

func dateRangeParams() map[string]ParamSpec {
	return map[string]ParamSpec{
		"date_start": {Kind: ParamString, Required: true, Description: "Range start, YYYY-MM-DD or RFC3339"},
		"date_end":   {Kind: ParamString, Required: true, Description: "Range end, YYYY-MM-DD or RFC3339"},
	}
}

// parseDateRange accepts RFC3339 or date-only bounds; date-only snaps the
// start to 00:00:00 and the end to the end of the day.
func parseDateRange(params map[string]interface{}) (time.Time, time.Time, error) {
	parse := func(value string, endOfDay bool) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, nil
		}
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD or RFC3339)", value)
		}
		if endOfDay {
			return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC), nil
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	start, err := parse(params["date_start"].(string), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parse(params["date_end"].(string), true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (at *AgentTools) afkStatusTool() Tool {
	return Tool{
		Name:        "get_afk_status",
		Description: "Get AFK status data for a date range. Returns when users were away from keyboard.",
		Params:      dateRangeParams(),
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			start, end, err := parseDateRange(params)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrValidation, err)
			}
			rows, err := at.telemetry.QueryAFKStatus(ctx, agentAccountID, agentOrgID, agentUserID, start, end)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrUpstreamQuery, err)
			}
			return marshalRows(rows)
		},
	}
}

func (at *AgentTools) appUsageTool() Tool {
	return Tool{
		Name:        "get_app_usage",
		Description: "Get app usage data for a date range. Returns which applications were used and for how long.",
		Params:      dateRangeParams(),
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			start, end, err := parseDateRange(params)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrValidation, err)
			}
			rows, err := at.telemetry.QueryAppUsage(ctx, agentAccountID, agentOrgID, agentUserID, start, end)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrUpstreamQuery, err)
			}
			return marshalRows(rows)
		},
	}
}

func (at *AgentTools) dailyMetricsTool() Tool {
	return Tool{
		Name:        "get_daily_metrics",
		Description: "Get daily metrics for a date range. Returns per-day active time, AFK time, idle time and app switches.",
		Params:      dateRangeParams(),
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			start, end, err := parseDateRange(params)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrValidation, err)
			}
			rows, err := at.telemetry.QueryDailyMetrics(ctx, agentAccountID, agentOrgID, agentUserID, start, end)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrUpstreamQuery, err)
			}
			return marshalRows(rows)
		},
	}
}

func (at *AgentTools) windowActivityTool() Tool {
	return Tool{
		Name:        "get_window_activity",
		Description: "Get window activity for a date range. Returns focused windows, applications and titles.",
		Params:      dateRangeParams(),
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			start, end, err := parseDateRange(params)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrValidation, err)
			}
			rows, err := at.telemetry.QueryWindowActivity(ctx, agentAccountID, agentOrgID, agentUserID, start, end)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrUpstreamQuery, err)
			}
			return marshalRows(rows)
		},
	}
}

func (at *AgentTools) fluxQueryTool() Tool {
	return Tool{
		Name: "execute_flux_query",
		Description: "Execute an arbitrary Flux query. Only for requests the other tools cannot satisfy. " +
			`The query MUST include the filter: |> filter(fn: (r) => r["account_id"] == "0")`,
		Params: map[string]ParamSpec{
			"query": {Kind: ParamString, Required: true, Description: "The Flux query to execute"},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			query := params["query"].(string)
			if !containsAccountIDFilter(query) {
				return "", fmt.Errorf("%w: query must include the account_id filter: |> filter(fn: (r) => r[\"account_id\"] == \"0\")", errs.ErrValidation)
			}
			rows, err := at.telemetry.QueryRaw(ctx, query)
			if err != nil {
				return "", fmt.Errorf("%w: %v", errs.ErrUpstreamQuery, err)
			}
			return marshalRows(rows)
		},
	}
}

func (at *AgentTools) reportTool() Tool {
	return Tool{
		Name:        "generate_productivity_report",
		Description: "Generate a full productivity report for a date range, including hourly breakdowns and discrepancy detection. Returns the report as JSON.",
		Params: map[string]ParamSpec{
			"org":        {Kind: ParamString, Required: true, Description: "Organization name"},
			"start_date": {Kind: ParamString, Required: true, Description: "Range start, YYYY-MM-DD"},
			"end_date":   {Kind: ParamString, Required: true, Description: "Range end, YYYY-MM-DD"},
			"users": {
				Kind: ParamArray, Required: true, Description: "Users to report on",
				Items: &ParamSpec{
					Kind: ParamObject,
					Fields: map[string]ParamSpec{
						"id":   {Kind: ParamInteger, Required: false, Description: "User id"},
						"name": {Kind: ParamString, Required: true, Description: "User name"},
					},
				},
			},
		},
		Execute: func(ctx context.Context, params map[string]interface{}) (string, error) {
			rawUsers := params["users"].([]interface{})
			users := make([]models.UserRef, 0, len(rawUsers))
			for _, raw := range rawUsers {
				obj := raw.(map[string]interface{})
				user := models.UserRef{Name: obj["name"].(string)}
				if id, ok := obj["id"].(float64); ok {
					user.ID = int(id)
				}
				users = append(users, user)
			}

			report, err := at.reports.GenerateReport(ctx, models.GenerateReportRequest{
				AccountID: agentAccountID,
				OrgID:     agentOrgID,
				Org:       params["org"].(string),
				Users:     users,
				StartDate: params["start_date"].(string),
				EndDate:   params["end_date"].(string),
			})
			if err != nil {
				return "", err
			}
			return marshalRows(report)
		},
	}
}

// containsAccountIDFilter checks the raw query for the required account
// scoping predicate in its accepted syntactic forms. This is a substring
// match, not a parser: a determined caller can smuggle the literal inside a
// string or comment. It is a guardrail against accidental unscoped queries,
// not a security boundary.
func containsAccountIDFilter(query string) bool {
	patterns := []string{
		`account_id"] == "0"`,
		`account_id"] == '0'`,
		`account_id"] == 0`,
		`account_id"] == \"0\"`,
		`account_id == "0"`,
		`account_id == 0`,
	}
	for _, pattern := range patterns {
		if strings.Contains(query, pattern) {
			return true
		}
	}
	return false
}

func marshalRows(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return string(data), nil
}
