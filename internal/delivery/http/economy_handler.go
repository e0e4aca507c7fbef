package http

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"playerbank/internal/delivery/http/dto"
	"playerbank/internal/usecase"
)

// EconomyHandler handles balance, session, and leaderboard requests
type EconomyHandler struct {
	users    *usecase.UserManager
	registry *usecase.CurrencyRegistry
}

// NewEconomyHandler creates a new EconomyHandler
func NewEconomyHandler(users *usecase.UserManager, registry *usecase.CurrencyRegistry) *EconomyHandler {
	return &EconomyHandler{
		users:    users,
		registry: registry,
	}
}

// Connect handles a player connect event by loading the user's data.
// A load failure rejects the connection.
// POST /api/sessions
func (h *EconomyHandler) Connect(c echo.Context) error {
	var input dto.SessionInput
	if err := c.Bind(&input); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	id, err := uuid.Parse(input.UserID)
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := h.users.OnConnect(ctx, id, input.Username)
	if err != nil {
		return ServiceUnavailableResponse(c, "Failed to load user data", err)
	}

	balances := make(map[string]string)
	for _, currency := range h.registry.All() {
		balances[currency.Identifier] = user.Balance(currency).String()
	}

	return SuccessResponse(c, dto.SessionOutput{
		UserID:   user.ID.String(),
		Username: user.Username(),
		Balances: balances,
	})
}

// Disconnect handles a player disconnect event: save if dirty, then unload
// once the save has settled.
// DELETE /api/sessions/:id
func (h *EconomyHandler) Disconnect(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.users.OnDisconnect(ctx, id); err != nil {
		return InternalServerErrorResponse(c, "Failed to save user data on disconnect", err)
	}

	return SuccessResponse(c, nil)
}

// GetBalance returns the cached balance for a user and currency
// GET /api/users/:id/balances/:currency
func (h *EconomyHandler) GetBalance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	balance, err := h.users.GetBalance(id, c.Param("currency"))
	if err != nil {
		return economyError(c, err)
	}

	return SuccessResponse(c, dto.BalanceOutput{
		UserID:   id.String(),
		Currency: c.Param("currency"),
		Balance:  balance.String(),
	})
}

// SetBalance sets the cached balance for a user and currency
// PUT /api/users/:id/balances/:currency
func (h *EconomyHandler) SetBalance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	var input dto.SetBalanceInput
	if err := c.Bind(&input); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	balance, err := decimal.NewFromString(input.Balance)
	if err != nil {
		return BadRequestResponse(c, "Invalid balance amount")
	}

	if err := h.users.SetBalance(id, c.Param("currency"), balance); err != nil {
		return economyError(c, err)
	}

	// report the stored (rounded) value, not the raw input
	stored, err := h.users.GetBalance(id, c.Param("currency"))
	if err != nil {
		return economyError(c, err)
	}

	return SuccessResponse(c, dto.BalanceOutput{
		UserID:   id.String(),
		Currency: c.Param("currency"),
		Balance:  stored.String(),
	})
}

// Pay transfers a payable currency between two loaded users
// POST /api/pay
func (h *EconomyHandler) Pay(c echo.Context) error {
	var input dto.PayInput
	if err := c.Bind(&input); err != nil {
		return BadRequestResponse(c, "Invalid request body")
	}

	fromID, err := uuid.Parse(input.FromID)
	if err != nil {
		return BadRequestResponse(c, "Invalid payer id")
	}
	toID, err := uuid.Parse(input.ToID)
	if err != nil {
		return BadRequestResponse(c, "Invalid receiver id")
	}
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return BadRequestResponse(c, "Invalid transfer amount")
	}

	if err := h.users.Pay(fromID, toID, input.Currency, amount); err != nil {
		if errors.Is(err, usecase.ErrUnknownCurrency) || errors.Is(err, usecase.ErrUserNotLoaded) {
			return NotFoundResponse(c, err.Error())
		}
		return BadRequestResponse(c, err.Error())
	}

	return SuccessResponse(c, nil)
}

// Currencies lists every registered currency
// GET /api/currencies
func (h *EconomyHandler) Currencies(c echo.Context) error {
	all := h.registry.All()

	out := make([]dto.CurrencyOutput, 0, len(all))
	for _, currency := range all {
		out = append(out, dto.CurrencyOutput{
			Identifier:     currency.Identifier,
			Scope:          currency.Scope,
			DecimalPlaces:  currency.DecimalPlaces,
			Payable:        currency.Payable,
			DefaultBalance: currency.DefaultBalance.String(),
		})
	}

	return SuccessResponse(c, out)
}

// Top returns the leaderboard for a currency
// GET /api/currencies/:currency/top?limit=10
func (h *EconomyHandler) Top(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return BadRequestResponse(c, "Invalid limit")
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	entries, err := h.users.TopUsers(ctx, c.Param("currency"), limit)
	if err != nil {
		return economyError(c, err)
	}

	out := make([]dto.TopEntryOutput, 0, len(entries))
	for _, entry := range entries {
		out = append(out, dto.TopEntryOutput{
			UserID:  entry.ID.String(),
			Balance: entry.Balance.String(),
		})
	}

	return SuccessResponse(c, out)
}

// economyError maps usecase errors onto HTTP responses
func economyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrUnknownCurrency), errors.Is(err, usecase.ErrUserNotLoaded):
		return NotFoundResponse(c, err.Error())
	case errors.Is(err, usecase.ErrDirtyUnload):
		return ConflictResponse(c, err.Error())
	default:
		return InternalServerErrorResponse(c, "Operation failed", err)
	}
}
