package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
	"pulse-tracker-report/internal/services"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	reportService *services.ReportService
	scheduler     *services.SchedulerService
	agentTools    *services.AgentTools
}

// NewHandlers creates a new handlers instance.
func NewHandlers(reportService *services.ReportService, scheduler *services.SchedulerService, agentTools *services.AgentTools) *Handlers {
	return &Handlers{
		reportService: reportService,
		scheduler:     scheduler,
		agentTools:    agentTools,
	}
}

// statusForError maps the pipeline error kinds onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUpstreamQuery), errors.Is(err, errs.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrScheduling):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// GenerateReportHandler handles POST /api/reports/generate.
// Submits an async ad hoc report task and returns its id immediately.
func (h *Handlers) GenerateReportHandler(c *gin.Context) {
	var req models.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.reportService.GenerateReportAsync(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.TaskResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

// GenerateReportSyncHandler handles POST /api/reports/generate-sync.
// Runs the pipeline inline and returns the report.
func (h *Handlers) GenerateReportSyncHandler(c *gin.Context) {
	var req models.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reportService.GenerateReport(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GenerateWeeklyReportHandler handles POST /api/reports/generate-weekly.
func (h *Handlers) GenerateWeeklyReportHandler(c *gin.Context) {
	var req models.GenerateWeeklyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.reportService.GenerateWeeklyReportAsync(req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.TaskResponse{
		TaskID: task.ID,
		Status: string(task.Status),
	})
}

// GenerateWeeklyReportSyncHandler handles POST /api/reports/generate-weekly-sync.
func (h *Handlers) GenerateWeeklyReportSyncHandler(c *gin.Context) {
	var req models.GenerateWeeklyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reportService.GenerateWeeklyReport(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetTaskStatusHandler handles GET /api/reports/status/:taskId.
func (h *Handlers) GetTaskStatusHandler(c *gin.Context) {
	status, err := h.reportService.TaskStatus(c.Param("taskId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// OptInWeeklyReportsHandler handles POST /api/reports/weekly/opt-in.
func (h *Handlers) OptInWeeklyReportsHandler(c *gin.Context) {
	var req models.OptInWeeklyReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.scheduler.OptIn(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "opted in to weekly reports",
		"accountId":       account.AccountID,
		"orgId":           account.OrgID,
		"nextTriggerTime": account.NextTriggerTime,
	})
}

// OptOutWeeklyReportsHandler handles POST /api/reports/weekly/opt-out.
func (h *Handlers) OptOutWeeklyReportsHandler(c *gin.Context) {
	var req models.OptOutWeeklyReportsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.scheduler.OptOut(c.Request.Context(), req.AccountID, req.OrgID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "opted out of weekly reports"})
}

// SendWeeklyReportEmailHandler handles POST /api/reports/weekly/send-email.
// Generates and delivers one weekly report immediately.
func (h *Handlers) SendWeeklyReportEmailHandler(c *gin.Context) {
	var req models.SendWeeklyReportEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.scheduler.SendWeeklyReportNow(c.Request.Context(), req); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "weekly report sent", "email": req.Email})
}

// GetOptedInAccountsHandler handles GET /api/reports/weekly/opted-in/:accountId.
func (h *Handlers) GetOptedInAccountsHandler(c *gin.Context) {
	accountID, err := strconv.Atoi(c.Param("accountId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accountId must be an integer"})
		return
	}

	accounts, err := h.scheduler.SubscriptionsByAccount(c.Request.Context(), accountID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if accounts == nil {
		accounts = []models.OptedAccount{}
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// ListToolsHandler handles GET /api/agent/tools.
func (h *Handlers) ListToolsHandler(c *gin.Context) {
	tools := h.agentTools.All()
	out := make([]gin.H, 0, len(tools))
	for _, tool := range tools {
		out = append(out, gin.H{
			"name":        tool.Name,
			"description": tool.Description,
			"parameters":  describeParams(tool.Params),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

// ExecuteToolHandler handles POST /api/agent/tools/execute.
func (h *Handlers) ExecuteToolHandler(c *gin.Context) {
	var req struct {
		Tool   string                 `json:"tool" binding:"required"`
		Params map[string]interface{} `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tool, err := h.agentTools.Lookup(req.Tool)
	if err != nil {
		abortWithError(c, err)
		return
	}

	result, err := tool.Call(c.Request.Context(), req.Params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func describeParams(specs map[string]services.ParamSpec) gin.H {
	out := gin.H{}
	for name, spec := range specs {
		entry := gin.H{
			"kind":     string(spec.Kind),
			"required": spec.Required,
		}
		if spec.Description != "" {
			entry["description"] = spec.Description
		}
		if spec.Items != nil {
			entry["items"] = describeParams(map[string]services.ParamSpec{"item": *spec.Items})["item"]
		}
		if len(spec.Fields) > 0 {
			entry["fields"] = describeParams(spec.Fields)
		}
		out[name] = entry
	}
	return out
}
