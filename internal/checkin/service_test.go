package checkin

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/config"
	"github.com/wellnessai/engagement-backend/internal/events"
	"github.com/wellnessai/engagement-backend/internal/ledger"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
)

type fixture struct {
	svc *Service
	db  *gorm.DB
	bus *events.Bus
	now *time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.CheckIn{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	clk := clock.Func(func() time.Time { return now })

	cfg := &config.Config{
		DailyCheckInCoins: 50,
		PositiveMoodBonus: 25,
		JournalEntryCoins: 25,
		StreakBonuses:     map[int]int{7: 100, 30: 500, 90: 1500},
	}

	sink := notify.NewSink(db, clk, time.Second)
	ldg := ledger.New(db, clk, sink, ledger.NewMemoryGuard(), cfg.StreakBonuses)
	bus := events.NewBus()

	return &fixture{
		svc: NewService(db, clk, ldg, sink, bus, cfg),
		db:  db,
		bus: bus,
		now: &now,
	}
}

func (f *fixture) newUser(t *testing.T, tz string) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     models.RoleEmployee,
		Timezone: tz,
		IsActive: true,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func (f *fixture) user(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user
}

func TestSubmitBaseCheckIn(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.CoinsEarned != 50 {
		t.Errorf("coins = %d, want 50 base only", receipt.CoinsEarned)
	}
	if receipt.CurrentStreak != 1 || receipt.BrokeStreak {
		t.Errorf("receipt = %+v, want fresh streak of 1", receipt)
	}
	if receipt.Day != "2026-03-02" {
		t.Errorf("day = %s, want 2026-03-02", receipt.Day)
	}

	user := f.user(t, userID)
	if user.HappyCoins != 50 || user.TotalCheckIns != 1 {
		t.Errorf("user = coins %d, check-ins %d; want 50 and 1", user.HappyCoins, user.TotalCheckIns)
	}
}

func TestSubmitGoodMoodEarnsBonus(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 4})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.CoinsEarned != 75 {
		t.Errorf("coins = %d, want 75 with mood bonus", receipt.CoinsEarned)
	}
}

func TestSubmitJournalNoteEarnsBonus(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 5, Note: "great sprint review today"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// 50 base + 25 mood + 25 journal.
	if receipt.CoinsEarned != 100 {
		t.Errorf("coins = %d, want 100", receipt.CoinsEarned)
	}
}

func TestSubmitWhitespaceNoteEarnsNoJournalBonus(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 2, Note: "   "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.CoinsEarned != 50 {
		t.Errorf("coins = %d, want 50 without journal bonus", receipt.CoinsEarned)
	}
}

func TestSubmitMoodBounds(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	for _, mood := range []int{0, -1, 6} {
		if _, err := f.svc.Submit(userID, SubmitRequest{Mood: mood}); !errors.Is(err, ErrInvalidMood) {
			t.Errorf("mood %d: err = %v, want ErrInvalidMood", mood, err)
		}
	}
	for _, mood := range []int{1, 5} {
		f2 := setup(t)
		id := f2.newUser(t, "UTC")
		if _, err := f2.svc.Submit(id, SubmitRequest{Mood: mood}); err != nil {
			t.Errorf("mood %d: unexpected err %v", mood, err)
		}
	}
}

func TestSubmitRejectsSecondCheckInSameDay(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 3}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 4}); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("err = %v, want ErrAlreadyCheckedIn", err)
	}

	user := f.user(t, userID)
	if user.HappyCoins != 50 {
		t.Errorf("balance = %d, want 50; duplicate must not credit", user.HappyCoins)
	}
}

func TestSubmitAllowsNextDay(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 3}); err != nil {
		t.Fatalf("day 1: %v", err)
	}
	*f.now = f.now.AddDate(0, 0, 1)

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 3})
	if err != nil {
		t.Fatalf("day 2: %v", err)
	}
	if receipt.CurrentStreak != 2 {
		t.Errorf("streak = %d, want 2", receipt.CurrentStreak)
	}
}

func TestSubmitSeventhDayCreditsStreakBonus(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	var last *Receipt
	for i := 0; i < 7; i++ {
		receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 3})
		if err != nil {
			t.Fatalf("day %d: %v", i+1, err)
		}
		last = receipt
		*f.now = f.now.AddDate(0, 0, 1)
	}

	if last.CurrentStreak != 7 {
		t.Fatalf("streak = %d, want 7", last.CurrentStreak)
	}
	if len(last.StreakBonuses) != 1 || last.StreakBonuses[0].Coins != 100 {
		t.Errorf("bonuses = %v, want one 100-coin bonus", last.StreakBonuses)
	}
	if last.CoinsEarned != 150 {
		t.Errorf("coins = %d, want 150 (base + bonus)", last.CoinsEarned)
	}

	user := f.user(t, userID)
	if user.HappyCoins != 7*50+100 {
		t.Errorf("balance = %d, want %d", user.HappyCoins, 7*50+100)
	}
}

func TestSubmitInvalidSource(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 3, Source: "carrier_pigeon"}); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("err = %v, want ErrInvalidSource", err)
	}
}

func TestSubmitUnknownUser(t *testing.T) {
	f := setup(t)

	if _, err := f.svc.Submit(uuid.New(), SubmitRequest{Mood: 3}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestSubmitPublishesCheckInRecorded(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	var seen []events.CheckInRecorded
	f.bus.Subscribe(events.TopicCheckInRecorded, func(evt events.Event) error {
		seen = append(seen, evt.(events.CheckInRecorded))
		return nil
	})

	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 4}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(seen) != 1 || seen[0].UserID != userID || seen[0].Mood != 4 || seen[0].NewStreak != 1 {
		t.Errorf("events = %+v, want one CheckInRecorded", seen)
	}
}

func TestSubmitWritesCompletionNotification(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 3}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var count int64
	f.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, models.NotifCheckInCompleted).
		Count(&count)
	if count != 1 {
		t.Errorf("completion notifications = %d, want 1", count)
	}
}

func TestSubmitBucketsDayInUserTimezone(t *testing.T) {
	f := setup(t)
	// 01:00 UTC on March 2 is still March 1 in New York.
	*f.now = time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	userID := f.newUser(t, "America/New_York")

	receipt, err := f.svc.Submit(userID, SubmitRequest{Mood: 3})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt.Day != "2026-03-01" {
		t.Errorf("day = %s, want 2026-03-01 in user's zone", receipt.Day)
	}
}

func TestHistoryPaginates(t *testing.T) {
	f := setup(t)
	userID := f.newUser(t, "UTC")

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Submit(userID, SubmitRequest{Mood: 3}); err != nil {
			t.Fatalf("day %d: %v", i+1, err)
		}
		*f.now = f.now.AddDate(0, 0, 1)
	}

	list, total, err := f.svc.History(userID, 2, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 5 || len(list) != 2 {
		t.Errorf("total = %d, page len = %d; want 5 and 2", total, len(list))
	}
	if !list[0].Day.After(list[1].Day) {
		t.Errorf("history not newest-first: %v then %v", list[0].Day, list[1].Day)
	}
}
