package services

import (
	"testing"

	"pulse-tracker-report/internal/models"
)

func TestNormalizeReportFillsHourSlots(t *testing.T) {
	period := models.Period{StartDate: "2025-11-19", EndDate: "2025-11-19"}
	report := &models.Report{
		Organizations: []models.Organization{{
			OrganizationName: "Turbo",
			Users: []models.User{{
				UserName: "ben",
				DailyReports: []models.DailyReport{{
					Date: "2025-11-19",
					HourlyBreakdown: []models.HourlyBreakdown{
						{Hour: 9, StartTime: "09:00", EndTime: "10:00", ActiveMinutes: 50, TotalMinutes: 60},
						{Hour: 14, ActiveMinutes: 30},
						{Hour: 14, ActiveMinutes: 99}, // duplicate, must lose
						{Hour: 31, ActiveMinutes: 10}, // out of range, must drop
					},
				}},
			}},
		}},
	}

	NormalizeReport(report, period)

	daily := report.Organizations[0].Users[0].DailyReports[0]
	if len(daily.HourlyBreakdown) != 24 {
		t.Fatalf("hour slots = %d, want 24", len(daily.HourlyBreakdown))
	}
	for hour, slot := range daily.HourlyBreakdown {
		if slot.Hour != hour {
			t.Fatalf("slot %d has hour %d", hour, slot.Hour)
		}
		if slot.TotalMinutes != 60 {
			t.Fatalf("slot %d totalMinutes = %d, want 60", hour, slot.TotalMinutes)
		}
		if slot.StartTime == "" || slot.EndTime == "" {
			t.Fatalf("slot %d missing time labels", hour)
		}
		if slot.AppUsage == nil {
			t.Fatalf("slot %d has nil appUsage", hour)
		}
	}

	if got := daily.HourlyBreakdown[9].ActiveMinutes; got != 50 {
		t.Fatalf("hour 9 activeMinutes = %v, want 50", got)
	}
	if got := daily.HourlyBreakdown[14].ActiveMinutes; got != 30 {
		t.Fatalf("hour 14 activeMinutes = %v, want 30 (first occurrence wins)", got)
	}
	if got := daily.HourlyBreakdown[0].StartTime; got != "00:00" {
		t.Fatalf("hour 0 startTime = %q, want 00:00", got)
	}
	if got := daily.HourlyBreakdown[23].EndTime; got != "00:00" {
		t.Fatalf("hour 23 endTime = %q, want 00:00 (wraps to midnight)", got)
	}

	if daily.NotableDiscrepancies == nil {
		t.Fatal("nil discrepancies must normalize to an empty slice")
	}
}

func TestNormalizeReportBackfillsPeriod(t *testing.T) {
	period := models.Period{StartDate: "2025-11-17", EndDate: "2025-11-23"}
	report := &models.Report{
		Organizations: []models.Organization{{
			OrganizationName: "Turbo",
			Users:            []models.User{{UserName: "ben"}},
		}},
	}

	NormalizeReport(report, period)

	if report.PeriodAnalyzed != period {
		t.Fatalf("period = %+v, want %+v", report.PeriodAnalyzed, period)
	}
	if report.GeneratedAt == "" {
		t.Fatal("generatedAt must be backfilled")
	}
	overall := report.Organizations[0].Users[0].OverallReport
	if overall.PeriodStart != "2025-11-17" || overall.PeriodEnd != "2025-11-23" {
		t.Fatalf("user period = %s..%s, want 2025-11-17..2025-11-23", overall.PeriodStart, overall.PeriodEnd)
	}
}
