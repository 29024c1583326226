// Package costing computes recipe costs and suggested prices.
//
// Internal accumulation keeps full float precision; Round2 is applied only
// when values are rendered for callers.
package costing

import (
	"math"

	"cafe-backend/internal/models"
)

// LineOutcome tags how a recipe line contributed to the cost.
type LineOutcome string

const (
	LineCosted LineOutcome = "costed"
	// LineSkippedMissingIngredient: the referenced ingredient no longer exists;
	// the line adds nothing to the cost.
	LineSkippedMissingIngredient LineOutcome = "skipped_missing_ingredient"
)

type LineCost struct {
	IngredientID   uint
	IngredientName string
	Unit           string
	Quantity       float64
	Waste          float64
	UnitCost       float64
	LineCost       float64
	Outcome        LineOutcome
}

type Breakdown struct {
	TotalCost      float64
	SuggestedPrice float64
	Margin         float64
	DefaultMargin  bool // true when the recipe has no margin of its own
	Lines          []LineCost
}

// Skipped counts lines whose ingredient was missing.
func (b Breakdown) Skipped() int {
	n := 0
	for _, l := range b.Lines {
		if l.Outcome == LineSkippedMissingIngredient {
			n++
		}
	}
	return n
}

type Engine struct {
	defaultMargin float64
}

func NewEngine(defaultMargin float64) *Engine {
	return &Engine{defaultMargin: defaultMargin}
}

func (e *Engine) DefaultMargin() float64 { return e.defaultMargin }

// EffectiveMargin is the recipe's own margin when set, otherwise the default.
func (e *Engine) EffectiveMargin(r models.Recipe) float64 {
	if r.Margin != nil {
		return *r.Margin
	}
	return e.defaultMargin
}

// Consumption is the amount of ingredient one recipe unit uses, waste included.
func Consumption(quantity, waste float64) float64 {
	return quantity * (1 + waste)
}

// Cost prices every line of r against the given ingredients (keyed by id).
// Lines whose ingredient is absent from the map are tagged and skipped.
func (e *Engine) Cost(r models.Recipe, ingredients map[uint]models.Ingredient) Breakdown {
	b := Breakdown{
		Margin:        e.EffectiveMargin(r),
		DefaultMargin: r.Margin == nil,
		Lines:         make([]LineCost, 0, len(r.Lines)),
	}

	for _, line := range r.Lines {
		lc := LineCost{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			Waste:        line.Waste,
		}
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			lc.Outcome = LineSkippedMissingIngredient
			b.Lines = append(b.Lines, lc)
			continue
		}
		lc.IngredientName = ing.Name
		lc.Unit = ing.Unit
		lc.UnitCost = ing.UnitCost
		lc.LineCost = Consumption(line.Quantity, line.Waste) * ing.UnitCost
		lc.Outcome = LineCosted

		b.TotalCost += lc.LineCost
		b.Lines = append(b.Lines, lc)
	}

	b.SuggestedPrice = b.TotalCost * (1 + b.Margin)
	return b
}

// Requirements returns the ingredient consumption for selling quantity units of r.
func Requirements(r models.Recipe, quantity float64) map[uint]float64 {
	out := make(map[uint]float64, len(r.Lines))
	for _, line := range r.Lines {
		out[line.IngredientID] += Consumption(line.Quantity, line.Waste) * quantity
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
