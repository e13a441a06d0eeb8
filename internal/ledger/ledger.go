package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/infra"
)

// Scale is the number of fractional digits the ledger keeps for every amount.
const Scale = 2

// MaxAmount is the exclusive ceiling on any amount or balance, the largest value a
// NUMERIC(18,2) column can hold plus one cent.
var MaxAmount = decimal.New(1, 16)

var (
	// ErrInvalidAmount rejects zero, negative, sub-cent or oversized amounts before any store access.
	ErrInvalidAmount = errors.New("amount must be a positive value below 1e16 with at most 2 decimal places")

	// ErrInvalidOpeningBalance rejects negative, sub-cent or oversized opening balances.
	ErrInvalidOpeningBalance = errors.New("opening balance must be a non-negative value below 1e16 with at most 2 decimal places")

	// ErrBalanceLimit rejects a credit that would lift a balance to MaxAmount or beyond.
	ErrBalanceLimit = errors.New("balance limit exceeded")

	// ErrInvalidBranch rejects accounts opened without a branch name.
	ErrInvalidBranch = errors.New("branch name is required")

	// ErrAccountNotFound indicates a referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds occurs when a debit exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameAccountTransfer rejects transfers whose source and destination coincide.
	ErrSameAccountTransfer = errors.New("cannot transfer to the same account")

	// ErrConcurrencyAborted and ErrStorageUnavailable come from the store. The first is
	// retried by the service, the second is surfaced as is.
	ErrConcurrencyAborted = infra.ErrConcurrencyAborted
	ErrStorageUnavailable = infra.ErrStorageUnavailable
)

// Kind tags what a transaction record did to its account's balance.
type Kind uint8

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
	KindTransferOut
	KindTransferIn
)

var kindNames = map[Kind]string{
	KindDeposit:     "deposit",
	KindWithdrawal:  "withdrawal",
	KindTransferOut: "transfer_out",
	KindTransferIn:  "transfer_in",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the four record kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind converts the stored name of a kind back into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Signed returns amount carrying the sign k applies to the balance.
func (k Kind) Signed(amount decimal.Decimal) decimal.Decimal {
	switch k {
	case KindDeposit, KindTransferIn:
		return amount
	case KindWithdrawal, KindTransferOut:
		return amount.Neg()
	}
	panic(fmt.Sprintf("ledger: signed amount for %s", k))
}

// Account is the current state of a ledger account.
type Account struct {
	ID     int64
	Branch string
	// Balance always equals OpeningBalance plus the signed sum of the account's records.
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal
	CustomerID     int64
	CreatedAt      time.Time
}

// Record is one immutable entry of the transaction log.
type Record struct {
	ID        int64
	AccountID int64
	Kind      Kind
	Amount    decimal.Decimal
	Timestamp time.Time
}

// Mutation captures one balance change and the record that explains it.
type Mutation struct {
	AccountID       int64
	PreviousBalance decimal.Decimal
	Balance         decimal.Decimal
	Record          Record
}

// TransferResult captures both legs of a committed transfer.
type TransferResult struct {
	Amount decimal.Decimal
	From   Mutation
	To     Mutation
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThan(MaxAmount) && amount.Equal(amount.Round(Scale))
}

func validOpeningBalance(amount decimal.Decimal) bool {
	return !amount.IsNegative() && amount.LessThan(MaxAmount) && amount.Equal(amount.Round(Scale))
}

// ValidateOpening checks the terms an account is opened with.
func ValidateOpening(branch string, opening decimal.Decimal) error {
	if strings.TrimSpace(branch) == "" {
		return ErrInvalidBranch
	}
	if !validOpeningBalance(opening) {
		return ErrInvalidOpeningBalance
	}
	return nil
}
