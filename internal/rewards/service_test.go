package rewards

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wellnessai/engagement-backend/internal/clock"
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
	if err := db.AutoMigrate(&models.User{}, &models.Reward{}, &models.Redemption{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.Fixed{T: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	sink := notify.NewSink(db, clk, time.Second)
	ldg := ledger.New(db, clk, sink, ledger.NewMemoryGuard(), nil)
	bus := events.NewBus()

	return &fixture{svc: NewService(db, clk, ldg, sink, bus), db: db, bus: bus}
}

func (f *fixture) newUser(t *testing.T, coins int) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:         uuid.New(),
		Email:      uuid.NewString() + "@example.com",
		Password:   "x",
		Role:       models.RoleEmployee,
		Timezone:   "UTC",
		IsActive:   true,
		HappyCoins: coins,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

func (f *fixture) newReward(t *testing.T, name string, cost int, stock *int) uuid.UUID {
	t.Helper()
	reward := models.Reward{
		ID:       uuid.New(),
		Name:     name,
		Cost:     cost,
		Category: "food",
		Stock:    stock,
		IsActive: true,
	}
	if err := f.db.Create(&reward).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}
	return reward.ID
}

func (f *fixture) coins(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var user models.User
	if err := f.db.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.HappyCoins
}

func intPtr(v int) *int { return &v }

func TestRedeemDebitsAndRecords(t *testing.T) {
	f := setup(t)
	user := f.newUser(t, 500)
	reward := f.newReward(t, "Coffee Voucher", 200, intPtr(3))

	var got events.RewardRedeemed
	f.bus.Subscribe(events.TopicRewardRedeemed, func(evt events.Event) error {
		got = evt.(events.RewardRedeemed)
		return nil
	})

	redemption, err := f.svc.Redeem(user, reward)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redemption.Cost != 200 {
		t.Errorf("redemption cost = %d, want 200", redemption.Cost)
	}
	if c := f.coins(t, user); c != 300 {
		t.Errorf("balance = %d, want 300", c)
	}

	var stored models.Reward
	if err := f.db.First(&stored, "id = ?", reward).Error; err != nil {
		t.Fatalf("load reward: %v", err)
	}
	if stored.Stock == nil || *stored.Stock != 2 {
		t.Errorf("stock = %v, want 2", stored.Stock)
	}

	if got.UserID != user || got.RewardID != reward || got.Cost != 200 {
		t.Errorf("event = %+v", got)
	}

	var count int64
	f.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", user, models.NotifRewardRedeemed).
		Count(&count)
	if count != 1 {
		t.Errorf("notifications = %d, want 1", count)
	}
}

func TestRedeemUnlimitedStock(t *testing.T) {
	f := setup(t)
	user := f.newUser(t, 1000)
	reward := f.newReward(t, "Charity Donation", 100, nil)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Redeem(user, reward); err != nil {
			t.Fatalf("redeem %d: %v", i, err)
		}
	}
	if c := f.coins(t, user); c != 700 {
		t.Errorf("balance = %d, want 700", c)
	}
}

func TestRedeemInsufficientCoinsRestoresStock(t *testing.T) {
	f := setup(t)
	user := f.newUser(t, 50)
	reward := f.newReward(t, "Lunch Voucher", 500, intPtr(1))

	if _, err := f.svc.Redeem(user, reward); !errors.Is(err, ledger.ErrInsufficientCoins) {
		t.Fatalf("err = %v, want ErrInsufficientCoins", err)
	}
	if c := f.coins(t, user); c != 50 {
		t.Errorf("balance = %d, want unchanged 50", c)
	}

	var stored models.Reward
	if err := f.db.First(&stored, "id = ?", reward).Error; err != nil {
		t.Fatalf("load reward: %v", err)
	}
	if stored.Stock == nil || *stored.Stock != 1 {
		t.Errorf("stock = %v, want restored 1", stored.Stock)
	}

	var count int64
	f.db.Model(&models.Redemption{}).Count(&count)
	if count != 0 {
		t.Errorf("redemptions = %d, want 0", count)
	}
}

func TestRedeemOutOfStock(t *testing.T) {
	f := setup(t)
	user := f.newUser(t, 1000)
	reward := f.newReward(t, "Half Day Off", 200, intPtr(0))

	if _, err := f.svc.Redeem(user, reward); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("err = %v, want ErrOutOfStock", err)
	}
	if c := f.coins(t, user); c != 1000 {
		t.Errorf("balance = %d, want unchanged 1000", c)
	}
}

func TestRedeemUnknownOrInactiveReward(t *testing.T) {
	f := setup(t)
	user := f.newUser(t, 1000)

	if _, err := f.svc.Redeem(user, uuid.New()); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("unknown reward err = %v, want ErrRewardNotFound", err)
	}

	inactive := models.Reward{ID: uuid.New(), Name: "Retired", Cost: 100, Category: "misc", IsActive: false}
	if err := f.db.Create(&inactive).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := f.svc.Redeem(user, inactive.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("inactive reward err = %v, want ErrRewardNotFound", err)
	}
}

func TestListActiveOrderedByCost(t *testing.T) {
	f := setup(t)
	f.newReward(t, "Expensive", 900, nil)
	f.newReward(t, "Cheap", 100, nil)
	inactive := models.Reward{ID: uuid.New(), Name: "Hidden", Cost: 50, Category: "misc", IsActive: false}
	if err := f.db.Create(&inactive).Error; err != nil {
		t.Fatalf("create reward: %v", err)
	}

	list, err := f.svc.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d entries, want 2", len(list))
	}
	if list[0].Name != "Cheap" || list[1].Name != "Expensive" {
		t.Errorf("order = %s, %s; want Cheap, Expensive", list[0].Name, list[1].Name)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	f := setup(t)

	if err := Seed(f.db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(f.db); err != nil {
		t.Fatalf("re-seed: %v", err)
	}

	var count int64
	f.db.Model(&models.Reward{}).Count(&count)
	if count != int64(len(DefaultCatalog())) {
		t.Errorf("rewards = %d, want %d", count, len(DefaultCatalog()))
	}
}
