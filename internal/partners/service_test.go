package partners

import (
	"context"
	"errors"
	"testing"

	"cafe-backend/internal/apperr"
	"cafe-backend/internal/models"
	"cafe-backend/internal/testutil"
)

func TestClientLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	c, err := s.CreateClient(ctx, ClientInput{Name: " Marta ", Email: "Marta@Example.com", Allergies: "nuts"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Marta" || c.Email != "marta@example.com" {
		t.Fatalf("client = %+v", c)
	}

	sale := models.Sale{ClientID: &c.ID, Total: 5}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("create sale: %v", err)
	}

	_, after, err := s.UpdateClient(ctx, c.ID, ClientInput{Name: "Marta R.", Phone: "555"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if after.Name != "Marta R." || after.Allergies != "" {
		t.Fatalf("after = %+v", after)
	}

	list, err := s.ListClients(ctx, "marta")
	if err != nil || len(list) != 1 {
		t.Fatalf("search = %v, %v", list, err)
	}

	if _, err := s.DeleteClient(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var reloaded models.Sale
	db.First(&reloaded, sale.ID)
	if reloaded.ClientID != nil {
		t.Fatalf("sale still points at deleted client")
	}
	if _, err := s.GetClient(ctx, c.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
}

func TestClientValidation(t *testing.T) {
	s := NewService(testutil.NewDB(t))
	ctx := context.Background()
	for _, in := range []ClientInput{{Name: ""}, {Name: "A", Email: "not-an-email"}} {
		if _, err := s.CreateClient(ctx, in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CreateClient(%+v) err = %v", in, err)
		}
	}
}

func TestDeleteProviderDetachesIngredients(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db)
	ctx := context.Background()

	p, err := s.CreateProvider(ctx, ProviderInput{Name: "Beans Co", Company: "Beans Co S.A."})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ing := testutil.CreateIngredient(t, db, "Coffee", 1, 1)
	db.Model(&ing).Update("provider_id", p.ID)

	if _, err := s.DeleteProvider(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var reloaded models.Ingredient
	db.First(&reloaded, ing.ID)
	if reloaded.ProviderID != nil {
		t.Fatalf("ingredient still linked to deleted provider")
	}
}
