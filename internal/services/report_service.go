package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"pulse-tracker-report/internal/database"
	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
	"pulse-tracker-report/internal/utils"
)

// ReportStore is the cache contract the pipeline needs. A nil store disables
// caching; the pipeline still works, it just regenerates every time.
// *database.ReportCache is the production implementation.
type ReportStore interface {
	Get(ctx context.Context, cacheKey string) (*database.CachedReport, error)
	Put(ctx context.Context, cached *database.CachedReport) error
}

// ReportService runs the report pipeline: cache lookup, telemetry collection,
// one engine call, normalization, cache write-back.
type ReportService struct {
	data        *DataService
	engine      GenerationEngine
	adhocCache  ReportStore // may be nil
	weeklyCache ReportStore // may be nil
	tasks       TaskStore
}

// NewReportService wires the pipeline. Either cache may be nil when the
// document store is unavailable.
func NewReportService(data *DataService, engine GenerationEngine, adhocCache, weeklyCache ReportStore, tasks TaskStore) *ReportService {
	return &ReportService{
		data:        data,
		engine:      engine,
		adhocCache:  adhocCache,
		weeklyCache: weeklyCache,
		tasks:       tasks,
	}
}

// ValidateRequest checks an ad hoc request beyond what request binding can
// express: parseable dates and an ordered range.
func ValidateRequest(req models.GenerateReportRequest) error {
	if len(req.Users) == 0 {
		return fmt.Errorf("%w: at least one user is required", errs.ErrValidation)
	}
	if req.Org == "" {
		return fmt.Errorf("%w: org is required", errs.ErrValidation)
	}
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return fmt.Errorf("%w: invalid startDate %q", errs.ErrValidation, req.StartDate)
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return fmt.Errorf("%w: invalid endDate %q", errs.ErrValidation, req.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate %s is before startDate %s", errs.ErrValidation, req.EndDate, req.StartDate)
	}
	return nil
}

// GenerateReport runs the ad hoc pipeline synchronously.
func (s *ReportService) GenerateReport(ctx context.Context, req models.GenerateReportRequest) (*models.Report, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	return s.generate(ctx, s.adhocCache, req, nil)
}

// GenerateReportAsync registers a task and runs the ad hoc pipeline in the
// background. The returned task is already pending.
func (s *ReportService) GenerateReportAsync(req models.GenerateReportRequest) (*models.Task, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	task := s.tasks.Create(req)
	go s.runTask(task.ID, func(ctx context.Context) (*models.Report, error) {
		return s.generate(ctx, s.adhocCache, req, nil)
	})
	return task, nil
}

// GenerateWeeklyReport runs the weekly pipeline synchronously. The requested
// week start is snapped to its Monday-Sunday bounds before anything else, so
// any date inside a week names the same report.
func (s *ReportService) GenerateWeeklyReport(ctx context.Context, req models.GenerateWeeklyReportRequest) (*models.Report, error) {
	adhocReq, err := weeklyToRangeRequest(req)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, s.weeklyCache, adhocReq, attachWeeklySummaries)
}

// GenerateWeeklyReportAsync registers a task and runs the weekly pipeline in
// the background.
func (s *ReportService) GenerateWeeklyReportAsync(req models.GenerateWeeklyReportRequest) (*models.Task, error) {
	adhocReq, err := weeklyToRangeRequest(req)
	if err != nil {
		return nil, err
	}

	task := s.tasks.Create(adhocReq)
	go s.runTask(task.ID, func(ctx context.Context) (*models.Report, error) {
		return s.generate(ctx, s.weeklyCache, adhocReq, attachWeeklySummaries)
	})
	return task, nil
}

// TaskStatus returns the polling view of a task.
func (s *ReportService) TaskStatus(taskID string) (*models.StatusResponse, error) {
	task, err := s.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	return &models.StatusResponse{
		TaskID: task.ID,
		Status: string(task.Status),
		Report: task.Report,
		Error:  task.Error,
	}, nil
}

// weeklyToRangeRequest snaps a weekly request to its calendar week and
// expresses it as a plain date-range request.
func weeklyToRangeRequest(req models.GenerateWeeklyReportRequest) (models.GenerateReportRequest, error) {
	if len(req.Users) == 0 {
		return models.GenerateReportRequest{}, fmt.Errorf("%w: at least one user is required", errs.ErrValidation)
	}
	if req.Org == "" {
		return models.GenerateReportRequest{}, fmt.Errorf("%w: org is required", errs.ErrValidation)
	}
	weekDate, err := utils.ParseDate(req.WeekStartDate)
	if err != nil {
		return models.GenerateReportRequest{}, fmt.Errorf("%w: invalid weekStartDate %q", errs.ErrValidation, req.WeekStartDate)
	}

	monday, sunday := utils.WeekBounds(weekDate)
	return models.GenerateReportRequest{
		AccountID: req.AccountID,
		Users:     req.Users,
		Org:       req.Org,
		OrgID:     req.OrgID,
		StartDate: utils.FormatDate(monday),
		EndDate:   utils.FormatDate(sunday),
	}, nil
}

// runTask drives one background task through its lifecycle.
func (s *ReportService) runTask(taskID string, generate func(context.Context) (*models.Report, error)) {
	if err := s.tasks.MarkProcessing(taskID); err != nil {
		log.Printf("ERROR: task %s: %v", taskID, err)
		return
	}

	report, err := generate(context.Background())
	if err != nil {
		log.Printf("ERROR: task %s failed: %v", taskID, err)
		if failErr := s.tasks.Fail(taskID, err); failErr != nil {
			log.Printf("ERROR: task %s: %v", taskID, failErr)
		}
		return
	}

	if err := s.tasks.Complete(taskID, report); err != nil {
		log.Printf("ERROR: task %s: %v", taskID, err)
		return
	}
	log.Printf("Task %s completed", taskID)
}

// generate is the shared pipeline body. postProcess, when set, runs after
// normalization and before the cache write (weekly summaries hook in here).
func (s *ReportService) generate(ctx context.Context, cache ReportStore, req models.GenerateReportRequest, postProcess func(*models.Report)) (*models.Report, error) {
	cacheKey := database.CacheKey(req.Org, req.OrgID, req.Users, req.StartDate, req.EndDate)

	if cache != nil {
		cached, err := cache.Get(ctx, cacheKey)
		if err != nil {
			// A broken cache degrades to a miss; the report still gets built.
			log.Printf("WARNING: cache read failed for %s: %v", cacheKey, err)
		} else if cached != nil && cached.Report != nil {
			log.Printf("Cache hit for %s (%s to %s)", req.Org, req.StartDate, req.EndDate)
			return cached.Report, nil
		}
	}

	startDate, _ := utils.ParseDate(req.StartDate)
	endDate, _ := utils.ParseDate(req.EndDate)
	// The range is inclusive; the telemetry query stop bound is not.
	queryStop := endDate.AddDate(0, 0, 1)

	telemetry := make([]UserTelemetry, 0, len(req.Users))
	for _, user := range req.Users {
		t, err := s.data.CollectUserTelemetry(ctx, req.AccountID, req.OrgID, user, startDate, queryStop)
		if err != nil {
			return nil, err
		}
		telemetry = append(telemetry, t)
	}

	dataContext := s.data.BuildContext(req.Org, telemetry, startDate, endDate)
	period := models.Period{StartDate: req.StartDate, EndDate: req.EndDate}

	report, err := s.engine.GenerateReport(ctx, dataContext, period)
	if err != nil {
		return nil, err
	}
	if len(report.Organizations) == 0 {
		report.Organizations = []models.Organization{{OrganizationName: req.Org, Users: []models.User{}}}
	}

	if postProcess != nil {
		postProcess(report)
	}

	if cache != nil {
		entry := &database.CachedReport{
			CacheKey:     cacheKey,
			Organization: req.Org,
			OrgID:        req.OrgID,
			Users:        req.Users,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			Report:       report,
		}
		if err := cache.Put(ctx, entry); err != nil {
			// The report is already built; a failed write only costs a
			// regeneration next time.
			log.Printf("WARNING: cache write failed for %s: %v", cacheKey, err)
		}
	}

	return report, nil
}

// attachWeeklySummaries ranks each organization's users and attaches the
// weekly summary. Ranking is by total active hours, descending; ties keep the
// engine's user order.
func attachWeeklySummaries(report *models.Report) {
	for i := range report.Organizations {
		org := &report.Organizations[i]
		if len(org.Users) == 0 {
			continue
		}

		ranks := make([]models.WeeklyUserRank, len(org.Users))
		for j, user := range org.Users {
			active := user.OverallReport.TotalActiveHours
			afk := user.OverallReport.TotalAfkHours
			ratio := 0.0
			if active+afk > 0 {
				ratio = active / (active + afk) * 100
			}
			ranks[j] = models.WeeklyUserRank{
				UserName:           user.UserName,
				ActiveHours:        active,
				ActivityRatio:      ratio,
				TotalDiscrepancies: user.OverallReport.TotalDiscrepancies,
			}
		}
		sort.SliceStable(ranks, func(a, b int) bool { return ranks[a].ActiveHours > ranks[b].ActiveHours })
		for j := range ranks {
			ranks[j].Rank = j + 1
		}

		top := len(ranks)
		if top > 3 {
			top = 3
		}
		bottom := len(ranks) - 3
		if bottom < top {
			bottom = top
		}

		org.WeeklySummary = &models.WeeklyOrganizationSummary{
			ProductivitySummary: weeklySummaryText(org.OrganizationName, ranks),
			TopPerformers:       append([]models.WeeklyUserRank{}, ranks[:top]...),
			BottomPerformers:    append([]models.WeeklyUserRank{}, ranks[bottom:]...),
		}
	}
}

func weeklySummaryText(orgName string, ranks []models.WeeklyUserRank) string {
	totalActive := 0.0
	totalDiscrepancies := 0
	for _, r := range ranks {
		totalActive += r.ActiveHours
		totalDiscrepancies += r.TotalDiscrepancies
	}
	avg := totalActive / float64(len(ranks))
	return fmt.Sprintf("%s logged %.1f active hours across %d users this week (%.1f average per user) with %d flagged discrepancies.",
		orgName, totalActive, len(ranks), avg, totalDiscrepancies)
}
