package model

// Strategy is one trading strategy, either from the public catalogue or a
// user's holdings.
type Strategy struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	PnL              float64 `json:"pnl"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	Units            float64 `json:"units"`
	Capital          float64 `json:"capital"`
	CapitalRemaining float64 `json:"capital_remaining"`
	CapitalUsed      float64 `json:"capital_used"`
	IsActive         bool    `json:"is_active"`
	CreatedAt        string  `json:"created_at"`
}
