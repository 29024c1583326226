package inventory

import (
	"bytes"
	"context"
	"testing"

	"cafe-backend/internal/testutil"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestImportIngredients(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewService(db, nil)
	milk := testutil.CreateIngredient(t, db, "Milk", 1, 10)

	buf := workbook(t, [][]any{
		{"Name", "Unit", "Unit cost", "Stock"},
		{"milk", "l", 1.4, 5},
		{"Oat milk", "l", 2.1, 12},
		{"Cinnamon", "g", "abc", 1},
		{"", "", "", ""},
	})

	res, err := s.ImportIngredients(context.Background(), buf, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Created != 1 || res.Updated != 1 || len(res.Unmatched) != 1 {
		t.Fatalf("result = %+v", res)
	}

	got, _ := s.GetIngredient(context.Background(), milk.ID)
	if got.UnitCost != 1.4 || got.Stock != 15 {
		t.Fatalf("milk = %+v", got)
	}
	oat, err := s.ListIngredients(context.Background(), "oat", false)
	if err != nil || len(oat) != 1 || oat[0].Stock != 12 || oat[0].Unit != "l" {
		t.Fatalf("oat milk = %+v, %v", oat, err)
	}
}
