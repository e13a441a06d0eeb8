package transactions

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/accounts"
	"github.com/congo-pay/corebank/internal/ledger"
)

// Handler exposes transaction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type mutationRequest struct {
	AccountID int64           `json:"acc_no"`
	Amount    decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	FromAccountID int64           `json:"from_acc_no"`
	ToAccountID   int64           `json:"to_acc_no"`
	Amount        decimal.Decimal `json:"amount"`
}

type recordResponse struct {
	ID        int64       `json:"txn_id"`
	AccountID int64       `json:"acc_no"`
	Kind      ledger.Kind `json:"type"`
	Amount    string      `json:"amount"`
	Timestamp time.Time   `json:"date_time"`
}

type mutationResponse struct {
	AccountID       int64          `json:"acc_no"`
	PreviousBalance string         `json:"previous_balance"`
	Balance         string         `json:"balance"`
	Transaction     recordResponse `json:"transaction"`
}

type totalsResponse struct {
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

func toRecord(r ledger.Record) recordResponse {
	return recordResponse{ID: r.ID, AccountID: r.AccountID, Kind: r.Kind, Amount: money(r.Amount), Timestamp: r.Timestamp}
}

func toRecords(records []ledger.Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toRecord(r))
	}
	return out
}

func toMutation(m ledger.Mutation) mutationResponse {
	return mutationResponse{
		AccountID:       m.AccountID,
		PreviousBalance: money(m.PreviousBalance),
		Balance:         money(m.Balance),
		Transaction:     toRecord(m.Record),
	}
}

func toTotals(t ledger.Totals) totalsResponse {
	return totalsResponse{Count: t.Count, Amount: money(t.Amount)}
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req mutationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Deposit(c.UserContext(), req.AccountID, req.Amount)
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toMutation(res))
}

// Withdraw debits an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req mutationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Withdraw(c.UserContext(), req.AccountID, req.Amount)
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toMutation(res))
}

// Transfer moves money between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Transfer(c.UserContext(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"amount": money(res.Amount),
		"from":   toMutation(res.From),
		"to":     toMutation(res.To),
	})
}

// All lists every transaction, newest first.
func (h *Handler) All(c *fiber.Ctx) error {
	records, err := h.service.All(c.UserContext())
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toRecords(records))
}

// History lists one account's transactions, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	id, err := accounts.AccountID(c, "accNo")
	if err != nil {
		return err
	}
	records, err := h.service.History(c.UserContext(), id)
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toRecords(records))
}

// Summary reports per-kind totals for one account.
func (h *Handler) Summary(c *fiber.Ctx) error {
	id, err := accounts.AccountID(c, "accNo")
	if err != nil {
		return err
	}
	sum, err := h.service.Summary(c.UserContext(), id)
	if err != nil {
		return accounts.StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"acc_no":        sum.Account.ID,
		"balance":       money(sum.Account.Balance),
		"deposits":      toTotals(sum.Deposits),
		"withdrawals":   toTotals(sum.Withdrawals),
		"transfers_in":  toTotals(sum.TransfersIn),
		"transfers_out": toTotals(sum.TransfersOut),
		"records":       sum.Records,
		"net_change":    money(sum.NetChange),
	})
}
