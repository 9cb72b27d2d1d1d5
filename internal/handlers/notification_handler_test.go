package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wellnessai/engagement-backend/internal/clock"
	"github.com/wellnessai/engagement-backend/internal/models"
	"github.com/wellnessai/engagement-backend/internal/notify"
)

func notifFixture(t *testing.T) (*fiber.App, *notify.Sink, *gorm.DB, uuid.UUID) {
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
	if err := db.AutoMigrate(&models.User{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     models.RoleEmployee,
		Timezone: "UTC",
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	sink := notify.NewSink(db, clock.Fixed{T: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}, time.Second)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"sub": user.ID.String()}})
		return c.Next()
	})
	h := NewNotificationHandler(sink)
	app.Post("/api/notifications/mark-read", h.MarkRead)

	return app, sink, db, user.ID
}

func emitN(t *testing.T, sink *notify.Sink, userID uuid.UUID, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		notif, err := sink.Emit(userID, notify.Template{Type: models.NotifSystemUpdate, Title: "x"})
		if err != nil {
			t.Fatalf("emit: %v", err)
		}
		ids = append(ids, notif.ID)
	}
	return ids
}

func postMarkRead(t *testing.T, app *fiber.App, body string) (int, int64) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/notifications/mark-read", bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if resp.StatusCode == fiber.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, envelope.Data.Updated
}

func TestMarkReadOmittedIDsMarksAll(t *testing.T) {
	app, sink, db, userID := notifFixture(t)
	emitN(t, sink, userID, 2)

	status, updated := postMarkRead(t, app, "{}")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}

	var unread int64
	db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unread)
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}

	// Nothing left, second pass is a no-op.
	status, updated = postMarkRead(t, app, "{}")
	if status != fiber.StatusOK || updated != 0 {
		t.Errorf("second pass = (%d, %d), want (200, 0)", status, updated)
	}
}

func TestMarkReadEmptyBodyMarksAll(t *testing.T) {
	app, sink, _, userID := notifFixture(t)
	emitN(t, sink, userID, 1)

	status, updated := postMarkRead(t, app, "")
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
}

func TestMarkReadExplicitIDs(t *testing.T) {
	app, sink, db, userID := notifFixture(t)
	ids := emitN(t, sink, userID, 2)

	body, _ := json.Marshal(fiber.Map{"ids": []uuid.UUID{ids[0]}})
	status, updated := postMarkRead(t, app, string(body))
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	var other models.Notification
	if err := db.First(&other, "id = ?", ids[1]).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if other.IsRead {
		t.Error("unlisted notification should stay unread")
	}
}

func TestMarkReadMalformedBody(t *testing.T) {
	app, sink, _, userID := notifFixture(t)
	emitN(t, sink, userID, 1)

	status, _ := postMarkRead(t, app, `{"ids": "nope"`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}
