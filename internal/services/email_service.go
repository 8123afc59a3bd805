package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"pulse-tracker-report/internal/config"
	"pulse-tracker-report/internal/models"
)

// EmailService sends weekly report emails via SendGrid. It is the production
// Delivery implementation: the PDF attachment is built here so scheduler
// callers only hand over the finished report.
type EmailService struct {
	fromEmail string
	client    *sendgrid.Client
	pdf       *PDFService
}

// NewEmailService creates a new email service.
func NewEmailService(cfg config.EmailConfig, pdf *PDFService) *EmailService {
	return &EmailService{
		fromEmail: cfg.FromEmail,
		client:    sendgrid.NewSendClient(cfg.APIKey),
		pdf:       pdf,
	}
}

// DeliverWeeklyReport renders the PDF and sends the weekly report email. A
// failed PDF render downgrades to a body-only email rather than dropping the
// delivery.
func (s *EmailService) DeliverWeeklyReport(ctx context.Context, account models.OptedAccount, report *models.Report, weekStart, weekEnd string) error {
	pdfData, err := s.pdf.GenerateWeeklyReportPDF(report)
	if err != nil {
		log.Printf("WARNING: PDF generation failed for org %s, sending without attachment: %v", account.OrgName, err)
		pdfData = nil
	}

	from := mail.NewEmail("Pulse Tracker", s.fromEmail)
	to := mail.NewEmail("", account.Email)
	subject := fmt.Sprintf("Weekly Productivity Report - %s", account.OrgName)

	message := mail.NewSingleEmail(from, subject, to,
		s.buildWeeklyReportEmailText(account.OrgName, report, weekStart, weekEnd),
		s.buildWeeklyReportEmailHTML(account.OrgName, report, weekStart, weekEnd))

	if len(pdfData) > 0 {
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(pdfData))
		attachment.SetType("application/pdf")
		attachment.SetFilename(fmt.Sprintf("weekly-report-%s.pdf", weekStart))
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email via SendGrid: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *EmailService) buildWeeklyReportEmailHTML(orgName string, report *models.Report, weekStart, weekEnd string) string {
	var html bytes.Buffer

	html.WriteString(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #0066cc; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background-color: #f8f9fa; padding: 20px; border-radius: 0 0 8px 8px; }
        .summary-box { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; border-left: 4px solid #0066cc; }
        .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="header">
        <h1 style="margin: 0;">Weekly Productivity Report</h1>
        <p style="margin: 5px 0 0 0; opacity: 0.9;">` + orgName + `</p>
    </div>
    <div class="content">
        <p>Hello,</p>
        <p>Your weekly productivity report for <strong>` + weekStart + `</strong> to <strong>` + weekEnd + `</strong> is ready.</p>`)

	if len(report.Organizations) > 0 && report.Organizations[0].WeeklySummary != nil {
		summary := report.Organizations[0].WeeklySummary
		if summary.ProductivitySummary != "" {
			html.WriteString(`
        <div class="summary-box">
            <h3 style="margin-top: 0; color: #0066cc;">Organization Summary</h3>
            <p>` + summary.ProductivitySummary + `</p>
        </div>`)
		}
	}

	html.WriteString(`
        <p>The complete report is attached as a PDF document.</p>
        <p>Best regards,<br>Pulse Tracker Team</p>
    </div>
    <div class="footer">
        <p>This is an automated email. Please do not reply.</p>
        <p>Generated on ` + report.GeneratedAt + `</p>
    </div>
</body>
</html>`)

	return html.String()
}

func (s *EmailService) buildWeeklyReportEmailText(orgName string, report *models.Report, weekStart, weekEnd string) string {
	var text bytes.Buffer

	fmt.Fprintf(&text, `Weekly Productivity Report
%s

Hello,

Your weekly productivity report for %s to %s is ready.

`, orgName, weekStart, weekEnd)

	if len(report.Organizations) > 0 && report.Organizations[0].WeeklySummary != nil {
		summary := report.Organizations[0].WeeklySummary
		if summary.ProductivitySummary != "" {
			fmt.Fprintf(&text, "Organization Summary:\n%s\n\n", summary.ProductivitySummary)
		}
	}

	text.WriteString(`The complete report is attached as a PDF document.

Best regards,
Pulse Tracker Team

---
This is an automated email. Please do not reply.
Generated on ` + report.GeneratedAt)

	return text.String()
}
