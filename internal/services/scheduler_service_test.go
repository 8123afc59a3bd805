package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
)

// stubSubscriptions is an in-memory SubscriptionStore.
type stubSubscriptions struct {
	mu       sync.Mutex
	accounts map[subscriptionKey]*models.OptedAccount
	err      error
}

func newStubSubscriptions() *stubSubscriptions {
	return &stubSubscriptions{accounts: make(map[subscriptionKey]*models.OptedAccount)}
}

func (s *stubSubscriptions) Upsert(ctx context.Context, account *models.OptedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	copied := *account
	s.accounts[subscriptionKey{account.AccountID, account.OrgID}] = &copied
	return nil
}

func (s *stubSubscriptions) Remove(ctx context.Context, accountID, orgID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	key := subscriptionKey{accountID, orgID}
	if _, ok := s.accounts[key]; !ok {
		return 0, nil
	}
	delete(s.accounts, key)
	return 1, nil
}

func (s *stubSubscriptions) Get(ctx context.Context, accountID, orgID int) (*models.OptedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	account, ok := s.accounts[subscriptionKey{accountID, orgID}]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (s *stubSubscriptions) List(ctx context.Context) ([]models.OptedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.OptedAccount
	for _, account := range s.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (s *stubSubscriptions) ListByAccount(ctx context.Context, accountID int) ([]models.OptedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.OptedAccount
	for key, account := range s.accounts {
		if key.accountID == accountID {
			out = append(out, *account)
		}
	}
	return out, nil
}

// stubDelivery records deliveries.
type stubDelivery struct {
	mu         sync.Mutex
	deliveries []string
	err        error
}

func (d *stubDelivery) DeliverWeeklyReport(ctx context.Context, account models.OptedAccount, report *models.Report, weekStart, weekEnd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deliveries = append(d.deliveries, account.Email)
	return nil
}

// fixedClock: Wednesday 2025-11-19 10:30 UTC.
func fixedClock() time.Time {
	return time.Date(2025, 11, 19, 10, 30, 0, 0, time.UTC)
}

func newTestScheduler(store SubscriptionStore, delivery Delivery) *SchedulerService {
	reports := newTestPipeline(&stubEngine{}, newStubCache(), newStubCache())
	return NewSchedulerService(reports, delivery, store, fixedClock)
}

func optInRequest() models.OptInWeeklyReportsRequest {
	return models.OptInWeeklyReportsRequest{
		AccountID: 7,
		OrgID:     3,
		OrgName:   "Turbo",
		Email:     "boss@turbo.test",
		Users:     []models.UserRef{{ID: 1, Name: "ben"}},
	}
}

func TestOptInDefaultsToNextMonday(t *testing.T) {
	store := newStubSubscriptions()
	sched := newTestScheduler(store, &stubDelivery{})

	account, err := sched.OptIn(context.Background(), optInRequest())
	if err != nil {
		t.Fatalf("OptIn: %v", err)
	}
	if account.NextTriggerTime == nil {
		t.Fatal("opt-in must compute a trigger time")
	}

	trigger := *account.NextTriggerTime
	if !trigger.After(fixedClock()) {
		t.Fatalf("trigger %s is not strictly in the future of %s", trigger, fixedClock())
	}
	if trigger.Weekday() != time.Monday {
		t.Fatalf("trigger weekday = %s, want Monday", trigger.Weekday())
	}
	want := time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC)
	if !trigger.Equal(want) {
		t.Fatalf("trigger = %s, want %s", trigger, want)
	}
	if sched.ScheduledCount() != 1 {
		t.Fatalf("scheduled jobs = %d, want 1", sched.ScheduledCount())
	}
}

func TestOptInAdvancesPastTriggerTime(t *testing.T) {
	store := newStubSubscriptions()
	sched := newTestScheduler(store, &stubDelivery{})

	// A Friday 09:00 three weeks before the clock.
	past := "2025-10-31T09:00:00Z"
	req := optInRequest()
	req.NextTriggerTime = &past

	account, err := sched.OptIn(context.Background(), req)
	if err != nil {
		t.Fatalf("OptIn: %v", err)
	}

	trigger := *account.NextTriggerTime
	if !trigger.After(fixedClock()) {
		t.Fatalf("past trigger was not advanced: %s", trigger)
	}
	if trigger.Weekday() != time.Friday || trigger.Hour() != 9 {
		t.Fatalf("advanced trigger must keep weekday and time of day, got %s", trigger)
	}
	want := time.Date(2025, 11, 21, 9, 0, 0, 0, time.UTC)
	if !trigger.Equal(want) {
		t.Fatalf("trigger = %s, want %s", trigger, want)
	}
}

func TestOptInRejectsMalformedTriggerTime(t *testing.T) {
	sched := newTestScheduler(newStubSubscriptions(), &stubDelivery{})

	bad := "next monday"
	req := optInRequest()
	req.NextTriggerTime = &bad

	_, err := sched.OptIn(context.Background(), req)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestReoptInReplacesJob(t *testing.T) {
	store := newStubSubscriptions()
	sched := newTestScheduler(store, &stubDelivery{})

	if _, err := sched.OptIn(context.Background(), optInRequest()); err != nil {
		t.Fatalf("first OptIn: %v", err)
	}
	req := optInRequest()
	req.Email = "newboss@turbo.test"
	if _, err := sched.OptIn(context.Background(), req); err != nil {
		t.Fatalf("second OptIn: %v", err)
	}

	if sched.ScheduledCount() != 1 {
		t.Fatalf("scheduled jobs = %d, want 1 (re-opt-in replaces)", sched.ScheduledCount())
	}
	account, _ := store.Get(context.Background(), 7, 3)
	if account.Email != "newboss@turbo.test" {
		t.Fatalf("stored email = %s, want the refreshed one", account.Email)
	}
}

func TestOptOutCancelsLiveJob(t *testing.T) {
	store := newStubSubscriptions()
	sched := newTestScheduler(store, &stubDelivery{})

	if _, err := sched.OptIn(context.Background(), optInRequest()); err != nil {
		t.Fatalf("OptIn: %v", err)
	}
	if err := sched.OptOut(context.Background(), 7, 3); err != nil {
		t.Fatalf("OptOut: %v", err)
	}

	if sched.ScheduledCount() != 0 {
		t.Fatalf("scheduled jobs = %d, want 0 after opt-out", sched.ScheduledCount())
	}
	if account, _ := store.Get(context.Background(), 7, 3); account != nil {
		t.Fatal("subscription record must be deleted on opt-out")
	}
}

func TestOptOutUnknownPairIsNotFound(t *testing.T) {
	sched := newTestScheduler(newStubSubscriptions(), &stubDelivery{})

	err := sched.OptOut(context.Background(), 99, 99)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestStartupReconstructsJobs(t *testing.T) {
	store := newStubSubscriptions()
	trigger := time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC)
	for _, pair := range []struct{ account, org int }{{7, 3}, {8, 4}} {
		store.Upsert(context.Background(), &models.OptedAccount{
			AccountID:       pair.account,
			OrgID:           pair.org,
			OrgName:         "Turbo",
			Email:           "boss@turbo.test",
			Users:           []models.UserRef{{ID: 1, Name: "ben"}},
			NextTriggerTime: &trigger,
		})
	}

	sched := newTestScheduler(store, &stubDelivery{})
	scheduled := sched.LoadAndScheduleOptedAccounts(context.Background())

	if scheduled != 2 {
		t.Fatalf("reconstructed jobs = %d, want 2", scheduled)
	}
	if sched.ScheduledCount() != 2 {
		t.Fatalf("live jobs = %d, want 2", sched.ScheduledCount())
	}
}

func TestNilStoreDegradesToNoop(t *testing.T) {
	sched := newTestScheduler(nil, &stubDelivery{})

	if _, err := sched.OptIn(context.Background(), optInRequest()); !errors.Is(err, errs.ErrScheduling) {
		t.Fatalf("OptIn error = %v, want ErrScheduling", err)
	}
	if err := sched.OptOut(context.Background(), 7, 3); !errors.Is(err, errs.ErrScheduling) {
		t.Fatalf("OptOut error = %v, want ErrScheduling", err)
	}
	if got := sched.LoadAndScheduleOptedAccounts(context.Background()); got != 0 {
		t.Fatalf("reconstructed jobs = %d, want 0 with nil store", got)
	}
}

func TestSendWeeklyReportNowDelivers(t *testing.T) {
	delivery := &stubDelivery{}
	sched := newTestScheduler(newStubSubscriptions(), delivery)

	err := sched.SendWeeklyReportNow(context.Background(), models.SendWeeklyReportEmailRequest{
		AccountID:     7,
		OrgID:         3,
		OrgName:       "Turbo",
		Email:         "boss@turbo.test",
		Users:         []models.UserRef{{ID: 1, Name: "ben"}},
		WeekStartDate: "2025-11-17",
	})
	if err != nil {
		t.Fatalf("SendWeeklyReportNow: %v", err)
	}
	if len(delivery.deliveries) != 1 || delivery.deliveries[0] != "boss@turbo.test" {
		t.Fatalf("deliveries = %v, want one to boss@turbo.test", delivery.deliveries)
	}
}

func TestDeliveryFailurePropagatesFromManualSend(t *testing.T) {
	delivery := &stubDelivery{err: errors.New("sendgrid 503")}
	sched := newTestScheduler(newStubSubscriptions(), delivery)

	err := sched.SendWeeklyReportNow(context.Background(), models.SendWeeklyReportEmailRequest{
		AccountID:     7,
		OrgID:         3,
		OrgName:       "Turbo",
		Email:         "boss@turbo.test",
		Users:         []models.UserRef{{ID: 1, Name: "ben"}},
		WeekStartDate: "2025-11-17",
	})
	if err == nil {
		t.Fatal("delivery failure must propagate from the manual send")
	}
}

func TestFiringKeepsJobAfterFailure(t *testing.T) {
	store := newStubSubscriptions()
	delivery := &stubDelivery{err: errors.New("sendgrid 503")}
	sched := newTestScheduler(store, delivery)

	if _, err := sched.OptIn(context.Background(), optInRequest()); err != nil {
		t.Fatalf("OptIn: %v", err)
	}

	// Fire directly; the cron loop is not running in tests.
	sched.fire(7, 3)

	if sched.ScheduledCount() != 1 {
		t.Fatalf("scheduled jobs = %d, want 1 (a failed firing keeps the job)", sched.ScheduledCount())
	}
}

func TestFiringWithoutSubscriptionCancelsJob(t *testing.T) {
	store := newStubSubscriptions()
	sched := newTestScheduler(store, &stubDelivery{})

	if _, err := sched.OptIn(context.Background(), optInRequest()); err != nil {
		t.Fatalf("OptIn: %v", err)
	}
	// Record vanished behind the scheduler's back.
	store.Remove(context.Background(), 7, 3)

	sched.fire(7, 3)

	if sched.ScheduledCount() != 0 {
		t.Fatalf("scheduled jobs = %d, want 0 after firing for a deleted subscription", sched.ScheduledCount())
	}
}
