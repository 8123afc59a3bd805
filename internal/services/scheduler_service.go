package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pulse-tracker-report/internal/errs"
	"pulse-tracker-report/internal/models"
	"pulse-tracker-report/internal/utils"
)

// SubscriptionStore persists weekly-report subscriptions.
// *database.OptedAccountStore is the production implementation.
type SubscriptionStore interface {
	Upsert(ctx context.Context, account *models.OptedAccount) error
	Remove(ctx context.Context, accountID, orgID int) (int64, error)
	Get(ctx context.Context, accountID, orgID int) (*models.OptedAccount, error)
	List(ctx context.Context) ([]models.OptedAccount, error)
	ListByAccount(ctx context.Context, accountID int) ([]models.OptedAccount, error)
}

// Delivery sends a finished weekly report to the subscriber.
// *EmailService is the production implementation.
type Delivery interface {
	DeliverWeeklyReport(ctx context.Context, account models.OptedAccount, report *models.Report, weekStart, weekEnd string) error
}

type subscriptionKey struct {
	accountID int
	orgID     int
}

// SchedulerService owns the recurring weekly report jobs. Each subscription
// maps to exactly one cron entry, tracked so opt-out cancels the live job
// instead of only deleting the record. With a nil store the scheduler
// degrades to a no-op: opt-in and opt-out fail cleanly and nothing fires.
type SchedulerService struct {
	reports  *ReportService
	delivery Delivery
	store    SubscriptionStore // may be nil
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	entries map[subscriptionKey]cron.EntryID
}

// NewSchedulerService creates the scheduler. now is the clock used for
// trigger-time arithmetic; pass time.Now outside tests.
func NewSchedulerService(reports *ReportService, delivery Delivery, store SubscriptionStore, now func() time.Time) *SchedulerService {
	if now == nil {
		now = time.Now
	}
	return &SchedulerService{
		reports:  reports,
		delivery: delivery,
		store:    store,
		cron:     cron.New(cron.WithSeconds()),
		now:      now,
		entries:  make(map[subscriptionKey]cron.EntryID),
	}
}

// Start starts the cron loop.
func (s *SchedulerService) Start() {
	s.cron.Start()
	log.Println("Weekly report scheduler started")
}

// Stop stops the cron loop.
func (s *SchedulerService) Stop() {
	s.cron.Stop()
	log.Println("Weekly report scheduler stopped")
}

// ScheduledCount returns the number of live jobs.
func (s *SchedulerService) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// OptIn subscribes an (account, org) pair: persists the record and registers
// the recurring job. Opting in again replaces both the record and the job.
func (s *SchedulerService) OptIn(ctx context.Context, req models.OptInWeeklyReportsRequest) (*models.OptedAccount, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: weekly report scheduling is unavailable without a document store", errs.ErrScheduling)
	}

	trigger, err := s.resolveTriggerTime(req.NextTriggerTime)
	if err != nil {
		return nil, err
	}

	account := &models.OptedAccount{
		AccountID:       req.AccountID,
		OrgID:           req.OrgID,
		OrgName:         req.OrgName,
		Email:           req.Email,
		Users:           req.Users,
		OptedInAt:       s.now(),
		NextTriggerTime: &trigger,
	}

	if err := s.store.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	if err := s.schedule(*account); err != nil {
		return nil, err
	}

	log.Printf("Account %d opted org %d (%s) into weekly reports, first trigger %s",
		req.AccountID, req.OrgID, req.OrgName, trigger.Format(time.RFC3339))
	return account, nil
}

// OptOut unsubscribes an (account, org) pair: deletes the record and cancels
// the live job. A pair with neither record nor job is ErrNotFound.
func (s *SchedulerService) OptOut(ctx context.Context, accountID, orgID int) error {
	if s.store == nil {
		return fmt.Errorf("%w: weekly report scheduling is unavailable without a document store", errs.ErrScheduling)
	}

	removed, err := s.store.Remove(ctx, accountID, orgID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	cancelled := s.unschedule(subscriptionKey{accountID, orgID})
	if removed == 0 && !cancelled {
		return fmt.Errorf("no weekly report subscription for account %d, org %d: %w", accountID, orgID, errs.ErrNotFound)
	}

	log.Printf("Account %d opted org %d out of weekly reports", accountID, orgID)
	return nil
}

// Subscriptions lists an account's weekly report subscriptions.
func (s *SchedulerService) Subscriptions(ctx context.Context, accountID, orgID int) (*models.OptedAccount, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: weekly report scheduling is unavailable without a document store", errs.ErrScheduling)
	}
	account, err := s.store.Get(ctx, accountID, orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	if account == nil {
		return nil, fmt.Errorf("no weekly report subscription for account %d, org %d: %w", accountID, orgID, errs.ErrNotFound)
	}
	return account, nil
}

// SubscriptionsByAccount lists every org subscription one account holds.
func (s *SchedulerService) SubscriptionsByAccount(ctx context.Context, accountID int) ([]models.OptedAccount, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: weekly report scheduling is unavailable without a document store", errs.ErrScheduling)
	}
	accounts, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return accounts, nil
}

// LoadAndScheduleOptedAccounts rebuilds the job set from stored subscriptions
// at process start. A subscription that fails to schedule is logged and
// skipped; it never blocks the rest.
func (s *SchedulerService) LoadAndScheduleOptedAccounts(ctx context.Context) int {
	if s.store == nil {
		log.Println("WARNING: document store unavailable, weekly report jobs not reconstructed")
		return 0
	}

	accounts, err := s.store.List(ctx)
	if err != nil {
		log.Printf("ERROR: failed to load opted accounts: %v", err)
		return 0
	}

	scheduled := 0
	for _, account := range accounts {
		if err := s.schedule(account); err != nil {
			log.Printf("WARNING: skipping weekly job for account %d, org %d: %v", account.AccountID, account.OrgID, err)
			continue
		}
		scheduled++
	}

	log.Printf("Reconstructed %d of %d weekly report jobs", scheduled, len(accounts))
	return scheduled
}

// SendWeeklyReportNow generates and delivers one weekly report immediately,
// outside the recurring schedule.
func (s *SchedulerService) SendWeeklyReportNow(ctx context.Context, req models.SendWeeklyReportEmailRequest) error {
	account := models.OptedAccount{
		AccountID: req.AccountID,
		OrgID:     req.OrgID,
		OrgName:   req.OrgName,
		Email:     req.Email,
		Users:     req.Users,
	}
	return s.generateAndDeliver(ctx, account, req.WeekStartDate)
}

// resolveTriggerTime parses the requested trigger time, defaulting to the
// next Monday 00:00. A past instant advances in whole weeks until it is in
// the future, preserving its weekday and time of day.
func (s *SchedulerService) resolveTriggerTime(requested *string) (time.Time, error) {
	now := s.now()
	if requested == nil || *requested == "" {
		return utils.NextMonday(now), nil
	}

	trigger, err := time.Parse(time.RFC3339, *requested)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid nextTriggerTime %q", errs.ErrValidation, *requested)
	}
	for !trigger.After(now) {
		trigger = trigger.AddDate(0, 0, 7)
	}
	return trigger, nil
}

// schedule registers the recurring cron job for one subscription, replacing
// any existing job for the same pair.
func (s *SchedulerService) schedule(account models.OptedAccount) error {
	// Weekly recurrence at the trigger's weekday and time of day.
	spec := "0 0 0 * * 1"
	if account.NextTriggerTime != nil {
		t := *account.NextTriggerTime
		spec = fmt.Sprintf("%d %d %d * * %d", t.Second(), t.Minute(), t.Hour(), int(t.Weekday()))
	}

	accountID, orgID := account.AccountID, account.OrgID
	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(accountID, orgID)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to register weekly job for account %d, org %d: %v", errs.ErrScheduling, accountID, orgID, err)
	}

	key := subscriptionKey{accountID, orgID}
	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		s.cron.Remove(old)
	}
	s.entries[key] = entryID
	s.mu.Unlock()

	log.Printf("Scheduled weekly report for account %d, org %d (%s) with spec %q", accountID, orgID, account.OrgName, spec)
	return nil
}

// unschedule cancels the live job for a pair, reporting whether one existed.
func (s *SchedulerService) unschedule(key subscriptionKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[key]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, key)
	return true
}

// fire runs one scheduled delivery. The subscription is re-read so roster or
// email changes since scheduling take effect; any failure is logged and the
// job stays registered for next week.
func (s *SchedulerService) fire(accountID, orgID int) {
	ctx := context.Background()

	account, err := s.store.Get(ctx, accountID, orgID)
	if err != nil {
		log.Printf("ERROR: weekly job for account %d, org %d: %v", accountID, orgID, err)
		return
	}
	if account == nil {
		log.Printf("WARNING: weekly job fired for account %d, org %d but no subscription exists, cancelling", accountID, orgID)
		s.unschedule(subscriptionKey{accountID, orgID})
		return
	}
	if len(account.Users) == 0 {
		log.Printf("WARNING: weekly job for account %d, org %d has no users, skipping", accountID, orgID)
		return
	}

	// The job fires at the start of a new week; report the week that ended.
	weekStart, _ := utils.WeekBounds(s.now().AddDate(0, 0, -7))
	if err := s.generateAndDeliver(ctx, *account, utils.FormatDate(weekStart)); err != nil {
		log.Printf("ERROR: weekly report for account %d, org %d: %v", accountID, orgID, err)
	}
}

func (s *SchedulerService) generateAndDeliver(ctx context.Context, account models.OptedAccount, weekStartDate string) error {
	req := models.GenerateWeeklyReportRequest{
		AccountID:     account.AccountID,
		Users:         account.Users,
		Org:           account.OrgName,
		OrgID:         account.OrgID,
		WeekStartDate: weekStartDate,
	}

	report, err := s.reports.GenerateWeeklyReport(ctx, req)
	if err != nil {
		return err
	}

	weekDate, err := utils.ParseDate(weekStartDate)
	if err != nil {
		return fmt.Errorf("%w: invalid weekStartDate %q", errs.ErrValidation, weekStartDate)
	}
	monday, sunday := utils.WeekBounds(weekDate)

	if err := s.delivery.DeliverWeeklyReport(ctx, account, report, utils.FormatDate(monday), utils.FormatDate(sunday)); err != nil {
		return err
	}

	log.Printf("Delivered weekly report for account %d, org %d (%s) to %s",
		account.AccountID, account.OrgID, account.OrgName, account.Email)
	return nil
}
