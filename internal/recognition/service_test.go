package recognition

import (
	"errors"
	"strings"
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
	if err := db.AutoMigrate(&models.User{}, &models.Recognition{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.Fixed{T: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	cfg := &config.Config{RecognitionCoins: 30}
	sink := notify.NewSink(db, clk, time.Second)
	ldg := ledger.New(db, clk, sink, ledger.NewMemoryGuard(), nil)
	bus := events.NewBus()

	return &fixture{
		svc: NewService(db, clk, ldg, sink, bus, cfg),
		db:  db,
		bus: bus,
	}
}

func (f *fixture) newUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Name:     name,
		Role:     models.RoleEmployee,
		Timezone: "UTC",
		IsActive: true,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func (f *fixture) coins(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.HappyCoins
}

func TestSendCreditsRecipient(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")
	bob := f.newUser(t, "Bob")

	var got events.RecognitionSent
	f.bus.Subscribe(events.TopicRecognitionSent, func(evt events.Event) error {
		got = evt.(events.RecognitionSent)
		return nil
	})

	rec, err := f.svc.Send(alice, SendRequest{
		ToUserID: bob,
		Message:  "Thanks for the code review",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if rec.HappyCoins != 30 {
		t.Errorf("recognition coins = %d, want 30", rec.HappyCoins)
	}
	if rec.Type != "kudos" {
		t.Errorf("type = %q, want default kudos", rec.Type)
	}
	if rec.Visibility != models.VisibilityPublic {
		t.Errorf("visibility = %q, want default public", rec.Visibility)
	}

	if c := f.coins(t, bob); c != 30 {
		t.Errorf("recipient balance = %d, want 30", c)
	}
	if c := f.coins(t, alice); c != 0 {
		t.Errorf("sender balance = %d, want 0", c)
	}

	if got.RecognitionID != rec.ID || got.ToUserID != bob || got.HappyCoins != 30 {
		t.Errorf("event = %+v, want recognition %s to %s", got, rec.ID, bob)
	}

	var notifs []models.Notification
	if err := f.db.Where("user_id = ? AND type = ?", bob, models.NotifRecognitionReceived).Find(&notifs).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifs))
	}
	if !strings.Contains(notifs[0].Title, "Alice") {
		t.Errorf("notification title %q should name the sender", notifs[0].Title)
	}
}

func TestSendRejectsSelfRecognition(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")

	if _, err := f.svc.Send(alice, SendRequest{ToUserID: alice, Message: "great job me"}); !errors.Is(err, ErrSelfRecognition) {
		t.Errorf("err = %v, want ErrSelfRecognition", err)
	}
}

func TestSendRejectsLongMessage(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")
	bob := f.newUser(t, "Bob")

	long := strings.Repeat("a", 501)
	if _, err := f.svc.Send(alice, SendRequest{ToUserID: bob, Message: long}); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("err = %v, want ErrMessageTooLong", err)
	}

	// 500 exactly is still fine.
	if _, err := f.svc.Send(alice, SendRequest{ToUserID: bob, Message: strings.Repeat("a", 500)}); err != nil {
		t.Errorf("500-char message: %v", err)
	}
}

func TestSendUnknownUsers(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")

	if _, err := f.svc.Send(alice, SendRequest{ToUserID: uuid.New(), Message: "hi"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown recipient err = %v, want ErrUserNotFound", err)
	}
	if _, err := f.svc.Send(uuid.New(), SendRequest{ToUserID: alice, Message: "hi"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown sender err = %v, want ErrUserNotFound", err)
	}
}

func TestSendKeepsValidVisibilityAndType(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")
	bob := f.newUser(t, "Bob")

	rec, err := f.svc.Send(alice, SendRequest{
		ToUserID:   bob,
		Type:       "teamwork",
		Message:    "thanks",
		Visibility: models.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if rec.Type != "teamwork" {
		t.Errorf("type = %q, want teamwork", rec.Type)
	}
	if rec.Visibility != models.VisibilityPrivate {
		t.Errorf("visibility = %q, want private", rec.Visibility)
	}

	// Unrecognized visibility falls back to public.
	rec2, err := f.svc.Send(alice, SendRequest{ToUserID: bob, Message: "again", Visibility: "broadcast"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if rec2.Visibility != models.VisibilityPublic {
		t.Errorf("visibility = %q, want public fallback", rec2.Visibility)
	}
}

func TestReceivedByPaginatesNewestFirst(t *testing.T) {
	f := setup(t)
	alice := f.newUser(t, "Alice")
	bob := f.newUser(t, "Bob")
	carol := f.newUser(t, "Carol")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := models.Recognition{
			ID:         uuid.New(),
			FromUserID: alice,
			ToUserID:   bob,
			Type:       "kudos",
			Message:    "nice",
			Visibility: models.VisibilityPublic,
			HappyCoins: 30,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if err := f.db.Create(&rec).Error; err != nil {
			t.Fatalf("seed recognition: %v", err)
		}
	}
	// Noise for another recipient.
	noise := models.Recognition{
		ID: uuid.New(), FromUserID: alice, ToUserID: carol,
		Type: "kudos", Message: "nice", Visibility: models.VisibilityPublic,
		HappyCoins: 30, CreatedAt: base,
	}
	if err := f.db.Create(&noise).Error; err != nil {
		t.Fatalf("seed noise: %v", err)
	}

	list, total, err := f.svc.ReceivedBy(bob, 2, 0)
	if err != nil {
		t.Fatalf("received: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(list) != 2 {
		t.Fatalf("page size = %d, want 2", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Error("expected newest first")
	}

	rest, _, err := f.svc.ReceivedBy(bob, 2, 2)
	if err != nil {
		t.Fatalf("received page 2: %v", err)
	}
	if len(rest) != 1 {
		t.Errorf("second page = %d, want 1", len(rest))
	}
}
