package model

// UnsetUserID marks an identity whose user id has not been assigned yet.
const UnsetUserID = -1

// Identity is the caller's credentials as held by the user store.
type Identity struct {
	UserID int    `json:"id"`
	Token  string `json:"token"`
}

// HasUser reports whether a usable user id is set. Zero and negative ids
// count as unset.
func (i Identity) HasUser() bool { return i.UserID > 0 }

// HasToken reports whether a bearer token is set.
func (i Identity) HasToken() bool { return i.Token != "" }

// Ready reports whether both the user id and the token are set.
func (i Identity) Ready() bool { return i.HasUser() && i.HasToken() }

// Profile is the user record returned by GET /user/{id}.
type Profile struct {
	Username         string  `json:"username"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	IsActive         bool    `json:"is_active"`
	IsVerified       bool    `json:"is_verified"`
	Capital          float64 `json:"capital"`
	CapitalRemaining float64 `json:"capital_remaining"`
	CapitalUsed      float64 `json:"capital_used"`
}

// LoginData is the payload of a successful POST /login.
type LoginData struct {
	UserID int    `json:"user_id"`
	Token  string `json:"token"`
	User   struct {
		ID       int     `json:"id"`
		Name     string  `json:"name"`
		Username string  `json:"username"`
		Capital  float64 `json:"capital"`
	} `json:"user"`
}

// RegisteredUser is the payload of a successful POST /register.
type RegisteredUser struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Capital  float64 `json:"capital"`
}

// Transfer moves capital into or out of a strategy.
type Transfer struct {
	StrategyID int     `json:"strategy_id"`
	Amount     float64 `json:"amount"`
}
