package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db, 0)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db, 0)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "panicky").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected panic to roll back, found %d rows", count)
	}
}

func TestWithTx_DeadlineRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := Wrap(db, 20*time.Millisecond)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "slow"}).Error; err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, ErrTxDeadline) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	var count int64
	if err := db.Model(&testModel{}).Where("name = ?", "slow").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected timed out tx to roll back, found %d rows", count)
	}
}

func TestPing(t *testing.T) {
	client := Wrap(newTestDB(t), 0)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation, got %v", err)
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_cash_shifts_open_till"}
	if !IsUniqueViolation(pgErr, "ux_cash_shifts_open_till") {
		t.Fatalf("expected named pg violation to match")
	}
	if IsUniqueViolation(pgErr, "ux_cash_shifts_open_operator") {
		t.Fatalf("expected different constraint to not match")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatalf("plain error should not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil should not match")
	}
}

func TestIsNotFound(t *testing.T) {
	db := newTestDB(t)
	var row testModel
	err := db.Where("name = ?", "missing").First(&row).Error
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
