package costing

// LineView and CostView are the rounded, JSON-facing form of a Breakdown.
type LineView struct {
	IngredientID   uint        `json:"ingredient_id"`
	IngredientName string      `json:"ingredient_name,omitempty"`
	Unit           string      `json:"unit,omitempty"`
	Quantity       float64     `json:"quantity"`
	Waste          float64     `json:"waste"`
	UnitCost       float64     `json:"unit_cost"`
	LineCost       float64     `json:"line_cost"`
	Outcome        LineOutcome `json:"outcome"`
}

type CostView struct {
	TotalCost      float64    `json:"total_cost"`
	SuggestedPrice float64    `json:"suggested_price"`
	Margin         float64    `json:"margin"`
	DefaultMargin  bool       `json:"default_margin"`
	SkippedLines   int        `json:"skipped_lines"`
	Lines          []LineView `json:"lines"`
}

func (b Breakdown) View() CostView {
	v := CostView{
		TotalCost:      Round2(b.TotalCost),
		SuggestedPrice: Round2(b.SuggestedPrice),
		Margin:         b.Margin,
		DefaultMargin:  b.DefaultMargin,
		SkippedLines:   b.Skipped(),
		Lines:          make([]LineView, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		v.Lines = append(v.Lines, LineView{
			IngredientID:   l.IngredientID,
			IngredientName: l.IngredientName,
			Unit:           l.Unit,
			Quantity:       l.Quantity,
			Waste:          l.Waste,
			UnitCost:       l.UnitCost,
			LineCost:       Round2(l.LineCost),
			Outcome:        l.Outcome,
		})
	}
	return v
}
