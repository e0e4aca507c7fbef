package dto

// SessionInput is the payload for a player connect event
type SessionInput struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// SessionOutput describes a loaded session
type SessionOutput struct {
	UserID   string            `json:"user_id"`
	Username string            `json:"username"`
	Balances map[string]string `json:"balances"`
}

// BalanceOutput is one user balance in one currency
type BalanceOutput struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// SetBalanceInput is the payload for a balance write
type SetBalanceInput struct {
	Balance string `json:"balance"`
}

// PayInput is the payload for a player-to-player transfer
type PayInput struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// CurrencyOutput describes one registered currency
type CurrencyOutput struct {
	Identifier     string `json:"identifier"`
	Scope          string `json:"scope"`
	DecimalPlaces  int    `json:"decimal_places"`
	Payable        bool   `json:"payable"`
	DefaultBalance string `json:"default_balance"`
}

// TopEntryOutput is one leaderboard row
type TopEntryOutput struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
}
