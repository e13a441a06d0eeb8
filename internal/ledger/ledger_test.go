package ledger

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestKindRoundTripsThroughText(t *testing.T) {
	for _, k := range []Kind{KindDeposit, KindWithdrawal, KindTransferOut, KindTransferIn} {
		raw, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		var back Kind
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if back != k {
			t.Fatalf("expected %s, got %s", k, back)
		}
	}
	if _, err := ParseKind("refund"); err == nil {
		t.Fatal("expected unknown kind error")
	}
	if _, err := Kind(0).MarshalText(); err == nil {
		t.Fatal("zero kind must not marshal")
	}
}

func TestKindSigned(t *testing.T) {
	amount := decimal.RequireFromString("12.34")
	cases := map[Kind]string{
		KindDeposit:     "12.34",
		KindTransferIn:  "12.34",
		KindWithdrawal:  "-12.34",
		KindTransferOut: "-12.34",
	}
	for k, want := range cases {
		if got := k.Signed(amount); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("%s: expected %s, got %s", k, want, got)
		}
	}
}

func TestValidAmount(t *testing.T) {
	cases := map[string]bool{
		"0.01":                true,
		"10":                  true,
		"10.50":               true,
		"0":                   false,
		"-5":                  false,
		"0.001":               false,
		"9999999999999999.99": true,
		"10000000000000000":   false,
	}
	for raw, want := range cases {
		if got := validAmount(decimal.RequireFromString(raw)); got != want {
			t.Fatalf("validAmount(%s) = %v, want %v", raw, got, want)
		}
	}
}

func TestApplyDeltaRespectsBalanceLimit(t *testing.T) {
	top := MaxAmount.Sub(decimal.RequireFromString("0.01"))
	if got, err := applyDelta(decimal.Zero, top); err != nil || !got.Equal(top) {
		t.Fatalf("expected %s, got %s (%v)", top, got, err)
	}
	if _, err := applyDelta(top, decimal.RequireFromString("0.01")); err != ErrBalanceLimit {
		t.Fatalf("expected balance limit, got %v", err)
	}
	if _, err := applyDelta(decimal.NewFromInt(5), decimal.NewFromInt(-6)); err != ErrInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}
