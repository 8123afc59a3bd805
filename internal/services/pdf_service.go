package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"pulse-tracker-report/internal/models"
)

// PDFService renders weekly reports as PDF attachments.
type PDFService struct{}

// NewPDFService creates a new PDF service.
func NewPDFService() *PDFService {
	return &PDFService{}
}

// GenerateWeeklyReportPDF renders a weekly report: a title page, then per
// organization the summary box, the performer ranking tables and each user's
// overall numbers.
func (s *PDFService) GenerateWeeklyReportPDF(report *models.Report) ([]byte, error) {
	if report == nil || len(report.Organizations) == 0 {
		return nil, fmt.Errorf("invalid report data")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("{nb}")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(108, 117, 125)
		pdf.SetX(15)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 102, 204)
	pdf.CellFormat(0, 20, "Weekly Productivity Report", "", 0, "C", false, 0, "")

	pdf.Ln(15)
	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(0, 10, fmt.Sprintf("Period: %s to %s", formatDateForPDF(report.PeriodAnalyzed.StartDate), formatDateForPDF(report.PeriodAnalyzed.EndDate)), "", 0, "C", false, 0, "")
	pdf.Ln(8)
	pdf.CellFormat(0, 10, fmt.Sprintf("Generated: %s", formatDateForPDF(report.GeneratedAt)), "", 0, "C", false, 0, "")

	for orgIndex, org := range report.Organizations {
		if orgIndex > 0 {
			pdf.AddPage()
		}

		s.addHeader(pdf, org.OrganizationName)

		if org.WeeklySummary != nil {
			s.addWeeklySummary(pdf, org.WeeklySummary)
		}

		s.addUserSummaries(pdf, org.Users)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *PDFService) addHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(10)
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 10, title, "", 0, "L", false, 0, "")

	pdf.Ln(10)
	pdf.SetLineWidth(0.5)
	pdf.SetDrawColor(0, 102, 204)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)
}

func (s *PDFService) addWeeklySummary(pdf *gofpdf.Fpdf, summary *models.WeeklyOrganizationSummary) {
	if summary.ProductivitySummary != "" {
		pdf.SetFillColor(248, 249, 250)
		pdf.SetDrawColor(0, 102, 204)
		pdf.SetLineWidth(0.5)
		startY := pdf.GetY()

		padding := 8.0
		textWidth := 180.0 - (padding * 2)

		pdf.SetFont("Arial", "", 9)
		lines := pdf.SplitText(summary.ProductivitySummary, textWidth)
		boxHeight := float64(len(lines)*5 + 10)

		pdf.Rect(15, startY, 180, boxHeight, "FD")

		pdf.SetTextColor(33, 37, 41)
		currentY := startY + 5
		for _, line := range lines {
			pdf.SetXY(15+padding, currentY)
			pdf.CellFormat(0, 5, strings.TrimSpace(line), "", 0, "L", false, 0, "")
			currentY += 5
		}

		pdf.SetY(startY + boxHeight)
		pdf.Ln(10)
	}

	if len(summary.TopPerformers) > 0 {
		pdf.Ln(4)
		s.addRankingTable(pdf, fmt.Sprintf("Top %d Performers", len(summary.TopPerformers)), summary.TopPerformers)
		pdf.Ln(10)
	}

	if len(summary.BottomPerformers) > 0 {
		s.addRankingTable(pdf, fmt.Sprintf("Bottom %d Performers", len(summary.BottomPerformers)), summary.BottomPerformers)
		pdf.Ln(10)
	}
}

func (s *PDFService) addRankingTable(pdf *gofpdf.Fpdf, title string, ranks []models.WeeklyUserRank) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 8, title, "", 0, "L", false, 0, "")
	pdf.Ln(6)

	colWidths := []float64{15, 70, 35, 35, 25}
	headers := []string{"Rank", "User", "Active Hours", "Activity %", "Flags"}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(0, 102, 204)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(colWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(33, 37, 41)
	for i, rank := range ranks {
		fill := i%2 == 1
		pdf.SetFillColor(248, 249, 250)
		pdf.CellFormat(colWidths[0], 7, fmt.Sprintf("%d", rank.Rank), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[1], 7, rank.UserName, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colWidths[2], 7, fmt.Sprintf("%.1f", rank.ActiveHours), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[3], 7, fmt.Sprintf("%.1f%%", rank.ActivityRatio), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colWidths[4], 7, fmt.Sprintf("%d", rank.TotalDiscrepancies), "1", 0, "C", fill, 0, "")
		pdf.Ln(-1)
	}
}

func (s *PDFService) addUserSummaries(pdf *gofpdf.Fpdf, users []models.User) {
	if len(users) == 0 {
		return
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(33, 37, 41)
	pdf.CellFormat(0, 8, "User Summaries", "", 0, "L", false, 0, "")
	pdf.Ln(8)

	for _, user := range users {
		overall := user.OverallReport

		pdf.SetFont("Arial", "B", 10)
		pdf.SetTextColor(0, 102, 204)
		pdf.CellFormat(0, 7, user.UserName, "", 0, "L", false, 0, "")
		pdf.Ln(6)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(33, 37, 41)
		pdf.CellFormat(0, 5, fmt.Sprintf("Active: %.1f h   AFK: %.1f h   Daily average: %.1f h   Discrepancies: %d (%d critical)",
			overall.TotalActiveHours, overall.TotalAfkHours, overall.AverageDailyActiveHours,
			overall.TotalDiscrepancies, overall.CriticalDiscrepancies), "", 0, "L", false, 0, "")
		pdf.Ln(5)

		if overall.Summary != "" {
			for _, line := range pdf.SplitText(overall.Summary, 175) {
				pdf.CellFormat(0, 5, strings.TrimSpace(line), "", 0, "L", false, 0, "")
				pdf.Ln(5)
			}
		}
		pdf.Ln(4)
	}
}

// formatDateForPDF renders ISO dates and timestamps as a readable date.
func formatDateForPDF(dateStr string) string {
	if t, err := time.Parse("2006-01-02", dateStr); err == nil {
		return t.Format("January 2, 2006")
	}
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.Format("January 2, 2006")
	}
	return dateStr
}
