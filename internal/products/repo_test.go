package products

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/vendomarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vendomarket-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Title:      "widget",
		PriceCents: 1000,
		StockQty:   stock,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func TestDecrementStockSucceedsWhenSufficient(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, 5)

	if err := repo.DecrementStock(context.Background(), productID, 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.StockQty != 2 {
		t.Fatalf("expected stock 2, got %d", stored.StockQty)
	}
}

func TestDecrementStockRejectsInsufficient(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, 2)

	err := repo.DecrementStock(context.Background(), productID, 3)
	if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.StockQty != 2 {
		t.Fatalf("stock must be untouched, got %d", stored.StockQty)
	}
}

func TestDecrementStockConcurrentRequestsNeverOversell(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, 4)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.DecrementStock(context.Background(), productID, 4)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one success, got %d", succeeded)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.StockQty != 0 {
		t.Fatalf("expected stock 0, got %d", stored.StockQty)
	}
}

func TestRestoreStockAddsBackExactQuantity(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, 1)

	if err := repo.RestoreStock(context.Background(), productID, 3); err != nil {
		t.Fatalf("restore: %v", err)
	}

	var stored models.Product
	if err := db.First(&stored, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.StockQty != 4 {
		t.Fatalf("expected stock 4, got %d", stored.StockQty)
	}
}
