package models

// Report is the complete generated productivity report. It is produced only
// by the generation engine and validated against the report schema before it
// is attached to a task or a cache entry; after that it is never mutated.
type Report struct {
	Organizations  []Organization `json:"organizations"`
	GeneratedAt    string         `json:"generatedAt"` // ISO 8601
	PeriodAnalyzed Period         `json:"periodAnalyzed"`
}

// Organization groups the per-user reports for one organization.
type Organization struct {
	OrganizationName string `json:"organizationName"`
	Users            []User `json:"users"`
	// WeeklySummary is only present on weekly reports.
	WeeklySummary *WeeklyOrganizationSummary `json:"weeklySummary,omitempty"`
}

// User holds one user's overall and daily breakdowns.
type User struct {
	UserName      string        `json:"userName"`
	OverallReport OverallReport `json:"overallReport"`
	DailyReports  []DailyReport `json:"dailyReports"`
}

// OverallReport summarizes a user's whole period.
type OverallReport struct {
	PeriodStart             string  `json:"periodStart"`
	PeriodEnd               string  `json:"periodEnd"`
	TotalActiveHours        float64 `json:"totalActiveHours"`
	TotalAfkHours           float64 `json:"totalAfkHours"`
	AverageDailyActiveHours float64 `json:"averageDailyActiveHours"`
	TotalDiscrepancies      int     `json:"totalDiscrepancies"`
	CriticalDiscrepancies   int     `json:"criticalDiscrepancies"`
	Summary                 string  `json:"summary"`
	Conclusion              string  `json:"conclusion"`
}

// DailyReport is one calendar day. HourlyBreakdown always carries exactly 24
// slots; the pipeline normalizes engine output that arrives with fewer.
type DailyReport struct {
	Date                 string            `json:"date"` // YYYY-MM-DD
	HourlyBreakdown      []HourlyBreakdown `json:"hourlyBreakdown"`
	TotalActiveMinutes   float64           `json:"totalActiveMinutes"`
	TotalAfkMinutes      float64           `json:"totalAfkMinutes"`
	NotableDiscrepancies []Discrepancy     `json:"notableDiscrepancies"`
	Summary              string            `json:"summary"`
}

// HourlyBreakdown is one hour slot of a daily report.
type HourlyBreakdown struct {
	Hour          int        `json:"hour"`      // 0-23
	StartTime     string     `json:"startTime"` // HH:MM
	EndTime       string     `json:"endTime"`   // HH:MM
	ActiveMinutes float64    `json:"activeMinutes"`
	AfkMinutes    float64    `json:"afkMinutes"`
	AppUsage      []AppUsage `json:"appUsage"`
	TotalMinutes  int        `json:"totalMinutes"` // always 60
}

// AppUsage is time spent in one application within an hour slot.
type AppUsage struct {
	AppName         string   `json:"appName"`
	DurationMinutes float64  `json:"durationMinutes"`
	WindowTitles    []string `json:"windowTitles,omitempty"`
}

// DiscrepancySeverity levels for flagged anomalies.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Discrepancy is an anomalous time-use pattern flagged by the engine.
type Discrepancy struct {
	Type            string  `json:"type"` // extended_afk, social_media, ...
	Severity        string  `json:"severity"`
	StartTime       string  `json:"startTime"` // HH:MM
	EndTime         string  `json:"endTime"`   // HH:MM
	DurationMinutes float64 `json:"durationMinutes"`
	Description     string  `json:"description"`
	Context         string  `json:"context,omitempty"`
}

// Period is an inclusive date range.
type Period struct {
	StartDate string `json:"startDate"` // YYYY-MM-DD
	EndDate   string `json:"endDate"`   // YYYY-MM-DD
}

// WeeklyOrganizationSummary is attached to weekly reports after generation.
type WeeklyOrganizationSummary struct {
	ProductivitySummary string           `json:"productivitySummary"`
	TopPerformers       []WeeklyUserRank `json:"topPerformers"`
	BottomPerformers    []WeeklyUserRank `json:"bottomPerformers"`
}

// WeeklyUserRank is one user's position in the weekly summary.
type WeeklyUserRank struct {
	UserName           string  `json:"userName"`
	Rank               int     `json:"rank"`
	ActiveHours        float64 `json:"activeHours"`
	ActivityRatio      float64 `json:"activityRatio"` // active / (active + afk), percent
	TotalDiscrepancies int     `json:"totalDiscrepancies"`
}
