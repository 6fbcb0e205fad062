package stubapi

import "StrategyDesk/internal/model"

// Demo credentials created by Seed.
const (
	DemoUsername = "ada"
	DemoPassword = "lovelace"
)

// Seed loads a demo user, two catalogue strategies and one holding.
func Seed(s *Server) (userID int, err error) {
	userID, err = s.AddUser(DemoPassword, model.Profile{
		Username:         DemoUsername,
		Name:             "Ada Lovelace",
		Email:            "ada@example.com",
		IsActive:         true,
		IsVerified:       true,
		Capital:          1000,
		CapitalRemaining: 400,
		CapitalUsed:      600,
	})
	if err != nil {
		return 0, err
	}
	s.PutStrategy(model.Strategy{
		ID: 1, Name: "Momentum", Description: "Daily breakout on index futures",
		PnL: 120.5, UnrealizedPnL: 14.25, Units: 5,
		Capital: 600, CapitalRemaining: 0, CapitalUsed: 600,
		IsActive: true, CreatedAt: "2024-01-01",
	})
	s.PutStrategy(model.Strategy{
		ID: 2, Name: "Mean Reversion", Description: "Intraday fade of opening gaps",
		PnL: -32, UnrealizedPnL: 0, Units: 0,
		Capital: 0, CapitalRemaining: 0, CapitalUsed: 0,
		IsActive: false, CreatedAt: "2024-03-15",
	})
	if err := s.Hold(userID, 1, 600); err != nil {
		return 0, err
	}
	return userID, nil
}
