package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pulse-tracker-report/internal/database"
	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
)

// TelemetrySource reads the four telemetry measurement kinds for one user.
// *database.InfluxDBClient is the production implementation.
type TelemetrySource interface {
	QueryAFKStatus(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]database.AFKStatus, error)
	QueryWindowActivity(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]database.WindowActivity, error)
	QueryAppUsage(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]database.AppUsage, error)
	QueryDailyMetrics(ctx context.Context, accountID, orgID, userID int, startDate, endDate time.Time) ([]database.DailyMetrics, error)
}

// UserTelemetry is everything collected for one user over the report period.
type UserTelemetry struct {
	User           models.UserRef
	AFKStatus      []database.AFKStatus
	WindowActivity []database.WindowActivity
	AppUsage       []database.AppUsage
	DailyMetrics   []database.DailyMetrics
}

// Empty reports whether no measurement returned any rows for this user.
func (t UserTelemetry) Empty() bool {
	return len(t.AFKStatus) == 0 && len(t.WindowActivity) == 0 &&
		len(t.AppUsage) == 0 && len(t.DailyMetrics) == 0
}

// DataService collects telemetry and shapes it into the context payload the
// generation engine consumes.
type DataService struct {
	source TelemetrySource
}

// NewDataService creates a new data service.
func NewDataService(source TelemetrySource) *DataService {
	return &DataService{source: source}
}

// CollectUserTelemetry queries all four measurement kinds for one user. Any
// query failure aborts the collection; partial telemetry never reaches the
// engine.
func (s *DataService) CollectUserTelemetry(ctx context.Context, accountID, orgID int, user models.UserRef, startDate, endDate time.Time) (UserTelemetry, error) {
	telemetry := UserTelemetry{User: user}

	afkData, err := s.source.QueryAFKStatus(ctx, accountID, orgID, user.ID, startDate, endDate)
	if err != nil {
		return telemetry, fmt.Errorf("%w: afk_status for user %d: %v", errs.ErrUpstreamQuery, user.ID, err)
	}
	telemetry.AFKStatus = afkData

	windowData, err := s.source.QueryWindowActivity(ctx, accountID, orgID, user.ID, startDate, endDate)
	if err != nil {
		return telemetry, fmt.Errorf("%w: window_activity for user %d: %v", errs.ErrUpstreamQuery, user.ID, err)
	}
	telemetry.WindowActivity = windowData

	appData, err := s.source.QueryAppUsage(ctx, accountID, orgID, user.ID, startDate, endDate)
	if err != nil {
		return telemetry, fmt.Errorf("%w: app_usage for user %d: %v", errs.ErrUpstreamQuery, user.ID, err)
	}
	telemetry.AppUsage = appData

	metricsData, err := s.source.QueryDailyMetrics(ctx, accountID, orgID, user.ID, startDate, endDate)
	if err != nil {
		return telemetry, fmt.Errorf("%w: daily_metrics for user %d: %v", errs.ErrUpstreamQuery, user.ID, err)
	}
	telemetry.DailyMetrics = metricsData

	return telemetry, nil
}

// BuildContext merges every user's telemetry into the single text payload for
// one engine call. A user with no rows is still listed so the engine reports
// them with zero activity rather than omitting them.
func (s *DataService) BuildContext(org string, telemetry []UserTelemetry, startDate, endDate time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ORGANIZATION: %s\n", org)
	fmt.Fprintf(&b, "PERIOD: %s to %s\n\n", startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	for _, t := range telemetry {
		fmt.Fprintf(&b, "=== USER: %s (id %d) ===\n\n", t.User.Name, t.User.ID)
		if t.Empty() {
			b.WriteString("No telemetry recorded for this user in the period.\n\n")
			continue
		}
		writeAFKSection(&b, t.AFKStatus)
		writeWindowSection(&b, t.WindowActivity)
		writeAppUsageSection(&b, t.AppUsage)
		writeDailyMetricsSection(&b, t.DailyMetrics)
	}

	return b.String()
}

func writeAFKSection(b *strings.Builder, afkData []database.AFKStatus) {
	b.WriteString("AFK STATUS DATA:\n")
	if len(afkData) == 0 {
		b.WriteString("No AFK status data found.\n\n")
		return
	}

	totalAFK, totalActive := 0, 0
	for _, afk := range afkData {
		if strings.EqualFold(strings.TrimSpace(afk.Status), "afk") {
			totalAFK += afk.Duration
		} else {
			totalActive += afk.Duration
		}
		fmt.Fprintf(b, "- Time: %s, Status: %s, Duration: %d seconds\n",
			afk.Time.Format(time.RFC3339), afk.Status, afk.Duration)
	}
	fmt.Fprintf(b, "Total AFK seconds: %d, Total Active seconds: %d\n\n", totalAFK, totalActive)
}

func writeWindowSection(b *strings.Builder, windowData []database.WindowActivity) {
	b.WriteString("WINDOW ACTIVITY DATA:\n")
	if len(windowData) == 0 {
		b.WriteString("No window activity data found.\n\n")
		return
	}
	for _, w := range windowData {
		fmt.Fprintf(b, "- Time: %s, App: %s, Title: %s, Duration: %d seconds\n",
			w.Time.Format(time.RFC3339), w.App, w.Title, w.Duration)
	}
	b.WriteString("\n")
}

func writeAppUsageSection(b *strings.Builder, appData []database.AppUsage) {
	b.WriteString("APP USAGE DATA:\n")
	if len(appData) == 0 {
		b.WriteString("No app usage data found.\n\n")
		return
	}

	// Per-app totals first so the engine sees the ranking at a glance.
	totals := make(map[string]int)
	for _, app := range appData {
		totals[app.AppName] += app.DurationSeconds
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return totals[names[i]] > totals[names[j]] })
	for _, name := range names {
		fmt.Fprintf(b, "- %s: %d seconds total\n", name, totals[name])
	}

	for _, app := range appData {
		fmt.Fprintf(b, "- Time: %s, App: %s, Duration: %d seconds, Events: %d\n",
			app.Time.Format(time.RFC3339), app.AppName, app.DurationSeconds, app.EventCount)
	}
	b.WriteString("\n")
}

func writeDailyMetricsSection(b *strings.Builder, metricsData []database.DailyMetrics) {
	b.WriteString("DAILY METRICS DATA:\n")
	if len(metricsData) == 0 {
		b.WriteString("No daily metrics data found.\n\n")
		return
	}
	for _, m := range metricsData {
		fmt.Fprintf(b, "- Date: %s, Active: %d seconds, AFK: %d seconds, Idle: %d seconds, App switches: %d, Utilization: %.2f\n",
			m.Date.Format("2006-01-02"), m.ActiveSeconds, m.AfkSeconds, m.IdleSeconds, m.AppSwitches, m.UtilizationRatio)
	}
	b.WriteString("\n")
}
