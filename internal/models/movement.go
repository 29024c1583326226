package models

import "time"

type MovementKind string

const (
	MovementInbound         MovementKind = "inbound"
	MovementOutbound        MovementKind = "outbound"
	MovementAdjustment      MovementKind = "adjustment"
	MovementSaleConsumption MovementKind = "sale_consumption"
	MovementSpoilage        MovementKind = "spoilage"
)

var MovementKinds = []MovementKind{
	MovementInbound,
	MovementOutbound,
	MovementAdjustment,
	MovementSaleConsumption,
	MovementSpoilage,
}

func (k MovementKind) Valid() bool {
	for _, v := range MovementKinds {
		if v == k {
			return true
		}
	}
	return false
}

func ParseMovementKind(s string) (MovementKind, bool) {
	k := MovementKind(s)
	return k, k.Valid()
}

// InventoryMovement: append-only ledger row. Quantity is the signed stock delta.
type InventoryMovement struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	IngredientID uint         `gorm:"index;not null" json:"ingredient_id"`
	Kind         MovementKind `gorm:"size:20;not null;index" json:"kind"`
	Quantity     float64      `gorm:"not null" json:"quantity"`
	Reference    string       `gorm:"size:200" json:"reference"`
	SaleID       *uint        `gorm:"index" json:"sale_id"`
	UserID       *uint        `json:"user_id"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`
}
