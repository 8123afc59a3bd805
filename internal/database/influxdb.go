package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"pulse-tracker-report/internal/config"
)

const queryTimeout = 30 * time.Second

// InfluxDBClient reads telemetry from InfluxDB 2.x via Flux queries.
type InfluxDBClient struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	bucket   string
}

// AFKStatus is one away-from-keyboard interval sample.
type AFKStatus struct {
	Time     time.Time
	Duration int // seconds
	Status   string
	Hostname string
	Org      string
	User     string
}

// WindowActivity is one focused-window sample.
type WindowActivity struct {
	Time     time.Time
	App      string
	Duration int // seconds
	Title    string
	Hostname string
	Org      string
	User     string
}

// AppUsage is one aggregated per-application usage sample.
type AppUsage struct {
	Time            time.Time
	AppName         string
	DurationSeconds int
	EventCount      int
	Hostname        string
	Org             string
	User            string
}

// DailyMetrics is one per-day activity rollup.
type DailyMetrics struct {
	Time             time.Time
	Date             time.Time
	ActiveSeconds    int
	AfkSeconds       int
	AppSwitches      int
	IdleSeconds      int
	UtilizationRatio float64
	Hostname         string
	Org              string
	User             string
}

// NewInfluxDBClient creates the InfluxDB reader and verifies connectivity.
func NewInfluxDBClient(cfg config.InfluxDBConfig) (*InfluxDBClient, error) {
	url := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if url == "" {
		return nil, fmt.Errorf("InfluxDB URL is required")
	}

	client := influxdb2.NewClient(url, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return &InfluxDBClient{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		bucket:   cfg.Bucket,
	}, nil
}

// Close releases the underlying client.
func (c *InfluxDBClient) Close() {
	c.client.Close()
}

// measurementQuery builds the standard per-user Flux query: one measurement,
// filtered to the (account, org, user) tags, pivoted so each row carries all
// fields, sorted by time.
func (c *InfluxDBClient) measurementQuery(measurement string, accountID, orgID, userID int, startDate, endDate time.Time) string {
	return fmt.Sprintf(`from(bucket: "%s")
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r["_measurement"] == "%s")
  |> filter(fn: (r) => r["account_id"] == "%d")
  |> filter(fn: (r) => r["org_id"] == "%d")
  |> filter(fn: (r) => r["user_id"] == "%d")
  |> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
  |> sort(columns: ["_time"])`,
		c.bucket,
		startDate.Format(time.RFC3339),
		endDate.Format(time.RFC3339),
		measurement,
		accountID,
		orgID,
		userID,
	)
}

// QueryAFKStatus queries the afk_status measurement for one user.
func (c *InfluxDBClient) QueryAFKStatus(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]AFKStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(ctx, c.measurementQuery("afk_status", accountID, orgID, userID, startDate, endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query afk_status: %w", err)
	}

	var records []AFKStatus
	for result.Next() {
		values := result.Record().Values()
		records = append(records, AFKStatus{
			Time:     result.Record().Time(),
			Duration: intValue(values, "duration"),
			Status:   stringValue(values, "status"),
			Hostname: stringValue(values, "hostname"),
			Org:      stringValue(values, "org"),
			User:     stringValue(values, "user"),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read afk_status rows: %w", result.Err())
	}
	return records, nil
}

// QueryWindowActivity queries the window_activity measurement for one user.
func (c *InfluxDBClient) QueryWindowActivity(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]WindowActivity, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(ctx, c.measurementQuery("window_activity", accountID, orgID, userID, startDate, endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query window_activity: %w", err)
	}

	var records []WindowActivity
	for result.Next() {
		values := result.Record().Values()
		records = append(records, WindowActivity{
			Time:     result.Record().Time(),
			App:      stringValue(values, "app"),
			Duration: intValue(values, "duration"),
			Title:    stringValue(values, "title"),
			Hostname: stringValue(values, "hostname"),
			Org:      stringValue(values, "org"),
			User:     stringValue(values, "user"),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read window_activity rows: %w", result.Err())
	}
	return records, nil
}

// QueryAppUsage queries the app_usage measurement for one user.
func (c *InfluxDBClient) QueryAppUsage(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]AppUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(ctx, c.measurementQuery("app_usage", accountID, orgID, userID, startDate, endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query app_usage: %w", err)
	}

	var records []AppUsage
	for result.Next() {
		values := result.Record().Values()
		records = append(records, AppUsage{
			Time:            result.Record().Time(),
			AppName:         stringValue(values, "app_name"),
			DurationSeconds: intValue(values, "duration_seconds"),
			EventCount:      intValue(values, "event_count"),
			Hostname:        stringValue(values, "hostname"),
			Org:             stringValue(values, "org"),
			User:            stringValue(values, "user"),
		})
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read app_usage rows: %w", result.Err())
	}
	return records, nil
}

// QueryDailyMetrics queries the daily_metrics measurement for one user.
func (c *InfluxDBClient) QueryDailyMetrics(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]DailyMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(ctx, c.measurementQuery("daily_metrics", accountID, orgID, userID, startDate, endDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily_metrics: %w", err)
	}

	var records []DailyMetrics
	for result.Next() {
		values := result.Record().Values()
		dm := DailyMetrics{
			Time:             result.Record().Time(),
			ActiveSeconds:    intValue(values, "active_seconds"),
			AfkSeconds:       intValue(values, "afk_seconds"),
			AppSwitches:      intValue(values, "app_switches"),
			IdleSeconds:      intValue(values, "idle_seconds"),
			UtilizationRatio: floatValue(values, "utilization_ratio"),
			Hostname:         stringValue(values, "hostname"),
			Org:              stringValue(values, "org"),
			User:             stringValue(values, "user"),
		}
		if dateStr := stringValue(values, "date"); dateStr != "" {
			if date, err := time.Parse("2006-01-02", dateStr); err == nil {
				dm.Date = date
			}
		}
		records = append(records, dm)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read daily_metrics rows: %w", result.Err())
	}
	return records, nil
}

// QueryRaw executes an arbitrary Flux query and returns each row as a map.
// Used by the agent tool surface; callers are responsible for scoping the
// query to an account.
func (c *InfluxDBClient) QueryRaw(ctx context.Context, fluxQuery string) ([]map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := c.queryAPI.Query(ctx, fluxQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute flux query: %w", err)
	}

	var rows []map[string]interface{}
	for result.Next() {
		rows = append(rows, result.Record().Values())
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("failed to read flux query rows: %w", result.Err())
	}
	return rows, nil
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}

func intValue(values map[string]interface{}, key string) int {
	switch v := values[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func floatValue(values map[string]interface{}, key string) float64 {
	switch v := values[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}
