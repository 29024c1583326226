package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("recipe %d not found", 3))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("did not expect ErrConflict")
	}
	if Kind(err) != ErrNotFound {
		t.Fatalf("Kind = %v", Kind(err))
	}
}

func TestInsufficientStockIsKind(t *testing.T) {
	var err error = &InsufficientStockError{IngredientID: 1, IngredientName: "Coffee", Available: 10, Required: 20}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock")
	}
	var ise *InsufficientStockError
	if !errors.As(fmt.Errorf("sale: %w", err), &ise) || ise.Required != 20 {
		t.Fatalf("errors.As failed: %+v", ise)
	}
}

func TestFromDB(t *testing.T) {
	if got := FromDB(gorm.ErrRecordNotFound, "ingredient"); !errors.Is(got, ErrNotFound) {
		t.Fatalf("record not found -> %v", got)
	}
	if got := FromDB(&pgconn.PgError{Code: "40001"}, "sale"); !errors.Is(got, ErrConflict) {
		t.Fatalf("serialization failure -> %v", got)
	}
	if got := FromDB(&pgconn.PgError{Code: "23505"}, "recipe"); !errors.Is(got, ErrConflict) {
		t.Fatalf("unique violation -> %v", got)
	}
	plain := errors.New("boom")
	if got := FromDB(plain, "x"); got != plain {
		t.Fatalf("unknown error should pass through, got %v", got)
	}
	if FromDB(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
}
