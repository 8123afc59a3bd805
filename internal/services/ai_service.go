package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pulse-tracker-report/internal/config"
	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
	"pulse-tracker-report/internal/utils"
	"pulse-tracker-report/internal/validation"
)

const generationTimeout = 120 * time.Second

// GenerationEngine turns a telemetry context payload into a validated report.
type GenerationEngine interface {
	GenerateReport(ctx context.Context, dataContext string, period models.Period) (*models.Report, error)
}

// AIService is the OpenAI-backed GenerationEngine. It sends the report schema
// as the structured output format and still validates the response against
// the same schema before handing it back.
type AIService struct {
	client *openai.Client
	cfg    config.OpenAIConfig
}

// NewAIService creates the OpenAI client.
func NewAIService(cfg config.OpenAIConfig) *AIService {
	return &AIService{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

const reportSystemPrompt = `You are a productivity analyst detecting discrepancies and unproductive activity patterns in work monitoring data.

You receive raw telemetry (AFK intervals, window activity, app usage, daily metrics) for every user of one organization over a date range. Produce a single JSON report covering the whole organization.

Rules:
- Include every user named in the data context, even users with no recorded telemetry (report them with zero activity).
- Each daily report must cover every hour of the day (hours 0-23) with HH:MM start/end times and totalMinutes of 60.
- Flag notable discrepancies (extended AFK stretches, excessive social media or entertainment use, unusual hours) with a severity of low, medium, high or critical.
- All durations derive from the supplied telemetry. Never invent activity that is not in the data.
- Summaries and conclusions are concise and professional.`

// GenerateReport makes one engine call for the whole organization and
// validates the structured output. All failures are generation errors; the
// caller decides whether a task fails or an email is skipped.
func (s *AIService) GenerateReport(ctx context.Context, dataContext string, period models.Period) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Analyze the following telemetry for the period %s to %s and produce the report.\n\n%s",
		period.StartDate, period.EndDate, dataContext)

	req := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Temperature: float32(s.cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reportSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "productivity_report",
				Schema: json.RawMessage(validation.ReportSchemaJSON),
				Strict: true,
			},
		},
	}
	if s.cfg.MaxTokens > 0 {
		req.MaxTokens = s.cfg.MaxTokens
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: engine call failed: %v", errs.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: engine returned no choices", errs.ErrGeneration)
	}
	log.Printf("Engine call completed in %s (%d prompt tokens, %d completion tokens)",
		time.Since(start).Round(time.Millisecond), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	report, err := validation.ValidateAndParseReport(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrGeneration, err)
	}

	NormalizeReport(report, period)
	return report, nil
}

// NormalizeReport repairs structural gaps in a schema-valid report: missing
// period bounds, short or unordered hourly breakdowns, nil discrepancy
// arrays. Every daily report leaves here with exactly 24 hour slots.
func NormalizeReport(report *models.Report, period models.Period) {
	if report.PeriodAnalyzed.StartDate == "" {
		report.PeriodAnalyzed.StartDate = period.StartDate
	}
	if report.PeriodAnalyzed.EndDate == "" {
		report.PeriodAnalyzed.EndDate = period.EndDate
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().Format(time.RFC3339)
	}

	for i := range report.Organizations {
		for j := range report.Organizations[i].Users {
			user := &report.Organizations[i].Users[j]

			if user.OverallReport.PeriodStart == "" {
				user.OverallReport.PeriodStart = report.PeriodAnalyzed.StartDate
			}
			if user.OverallReport.PeriodEnd == "" {
				user.OverallReport.PeriodEnd = report.PeriodAnalyzed.EndDate
			}

			for k := range user.DailyReports {
				daily := &user.DailyReports[k]
				daily.HourlyBreakdown = normalizeHourlySlots(daily.HourlyBreakdown)
				if daily.NotableDiscrepancies == nil {
					daily.NotableDiscrepancies = []models.Discrepancy{}
				}
			}
		}
	}
}

// normalizeHourlySlots maps whatever hour slots the engine produced onto the
// full 0-23 range. Duplicate hours keep the first occurrence; missing hours
// become empty slots.
func normalizeHourlySlots(slots []models.HourlyBreakdown) []models.HourlyBreakdown {
	byHour := make(map[int]models.HourlyBreakdown, len(slots))
	for _, slot := range slots {
		if slot.Hour < 0 || slot.Hour > 23 {
			continue
		}
		if _, exists := byHour[slot.Hour]; !exists {
			byHour[slot.Hour] = slot
		}
	}

	normalized := make([]models.HourlyBreakdown, 24)
	for hour := 0; hour < 24; hour++ {
		slot, ok := byHour[hour]
		if !ok {
			slot = models.HourlyBreakdown{Hour: hour, AppUsage: []models.AppUsage{}}
		}
		if slot.StartTime == "" || slot.EndTime == "" {
			slot.StartTime, slot.EndTime = utils.HourRange(hour)
		}
		if slot.TotalMinutes == 0 {
			slot.TotalMinutes = 60
		}
		if slot.AppUsage == nil {
			slot.AppUsage = []models.AppUsage{}
		}
		normalized[hour] = slot
	}
	return normalized
}
