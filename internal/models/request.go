package models

// UserRef identifies one user in a report request.
type UserRef struct {
	Name string `json:"name" binding:"required"`
	ID   int    `json:"id"` // Optional, defaults to 0
}

// GenerateReportRequest is the ad hoc report request: an arbitrary inclusive
// date range for a set of users in one organization.
type GenerateReportRequest struct {
	AccountID int       `json:"accountId"` // Optional, defaults to 0
	Users     []UserRef `json:"users" binding:"required,min=1"`
	Org       string    `json:"org" binding:"required"`
	OrgID     int       `json:"orgId"` // Optional, defaults to 0
	StartDate string    `json:"startDate" binding:"required"` // YYYY-MM-DD
	EndDate   string    `json:"endDate" binding:"required"`   // YYYY-MM-DD
}

// GenerateWeeklyReportRequest is the weekly variant. WeekStartDate may be any
// date; the pipeline snaps it to the Monday-Sunday bounds of its week.
type GenerateWeeklyReportRequest struct {
	AccountID     int       `json:"accountId"`
	Users         []UserRef `json:"users" binding:"required,min=1"`
	Org           string    `json:"org" binding:"required"`
	OrgID         int       `json:"orgId"`
	WeekStartDate string    `json:"weekStartDate" binding:"required"` // YYYY-MM-DD
}

// TaskResponse is returned by the async submission endpoints.
type TaskResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// StatusResponse is returned when polling a task.
type StatusResponse struct {
	TaskID string  `json:"taskId"`
	Status string  `json:"status"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// OptInWeeklyReportsRequest subscribes an (account, org) pair to weekly
// report generation and email delivery.
type OptInWeeklyReportsRequest struct {
	AccountID int       `json:"accountId" binding:"required"`
	OrgID     int       `json:"orgId" binding:"required"`
	OrgName   string    `json:"orgName" binding:"required"`
	Email     string    `json:"email" binding:"required,email"`
	Users     []UserRef `json:"users" binding:"required,min=1"`
	// NextTriggerTime optionally overrides the default Monday 00:00 anchor.
	// ISO 8601; the job recurs weekly at this instant's weekday and time of
	// day, so a past instant fires at its next occurrence.
	NextTriggerTime *string `json:"nextTriggerTime,omitempty"`
}

// OptOutWeeklyReportsRequest unsubscribes an (account, org) pair.
type OptOutWeeklyReportsRequest struct {
	AccountID int `json:"accountId" binding:"required"`
	OrgID     int `json:"orgId" binding:"required"`
}

// SendWeeklyReportEmailRequest manually triggers one weekly report email.
type SendWeeklyReportEmailRequest struct {
	AccountID     int       `json:"accountId" binding:"required"`
	OrgID         int       `json:"orgId" binding:"required"`
	OrgName       string    `json:"orgName" binding:"required"`
	Email         string    `json:"email" binding:"required,email"`
	Users         []UserRef `json:"users" binding:"required,min=1"`
	WeekStartDate string    `json:"weekStartDate" binding:"required"` // YYYY-MM-DD
}
