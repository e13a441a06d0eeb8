package routes

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/corebank/internal/config"
	"github.com/congo-pay/corebank/internal/logging"
)

type client struct {
	t    *testing.T
	app  *fiber.App
	keys int
}

func newClient(t *testing.T) *client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	app := fiber.New()
	cfg := config.Config{AppEnv: "development", IdempotencyTTL: time.Minute, MaxRetries: 3}
	if err := Setup(app, Deps{Cfg: cfg, Cache: cache, Logger: logging.Discard()}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return &client{t: t, app: app}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
// POST requests get a fresh Idempotency-Key unless key is given.
func (c *client) do(method, path, body string, out any, key ...string) int {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if method == fiber.MethodPost {
		if len(key) > 0 {
			req.Header.Set("Idempotency-Key", key[0])
		} else {
			c.keys++
			req.Header.Set("Idempotency-Key", fmt.Sprintf("test-%d", c.keys))
		}
	}
	resp, err := c.app.Test(req, -1)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type accountBody struct {
	ID         int64  `json:"acc_no"`
	Balance    string `json:"balance"`
	CustomerID int64  `json:"cust_id"`
}

type mutationBody struct {
	Balance     string `json:"balance"`
	Transaction struct {
		ID   int64  `json:"txn_id"`
		Type string `json:"type"`
	} `json:"transaction"`
}

func (c *client) openAccount(name, opening string) accountBody {
	c.t.Helper()
	var acct accountBody
	body := fmt.Sprintf(`{"cust_name":%q,"branch_name":"Downtown","opening_balance":%q}`, name, opening)
	if status := c.do(fiber.MethodPost, "/api/v1/accounts", body, &acct); status != fiber.StatusCreated {
		c.t.Fatalf("open account: status %d", status)
	}
	return acct
}

func TestMoneyMovementEndToEnd(t *testing.T) {
	c := newClient(t)
	a := c.openAccount("Alice", "100.00")
	b := c.openAccount("Bob", "0")

	var dep mutationBody
	depositBody := fmt.Sprintf(`{"acc_no":%d,"amount":"50.25"}`, a.ID)
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/deposit", depositBody, &dep, "dep-1"); status != fiber.StatusCreated {
		t.Fatalf("deposit: status %d", status)
	}
	if dep.Balance != "150.25" || dep.Transaction.Type != "deposit" {
		t.Fatalf("unexpected deposit response: %+v", dep)
	}

	var replay mutationBody
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/deposit", depositBody, &replay, "dep-1"); status != fiber.StatusCreated {
		t.Fatalf("replayed deposit: status %d", status)
	}
	if replay.Transaction.ID != dep.Transaction.ID {
		t.Fatalf("replay must return the first record, got %d want %d", replay.Transaction.ID, dep.Transaction.ID)
	}

	transferBody := fmt.Sprintf(`{"from_acc_no":%d,"to_acc_no":%d,"amount":30}`, a.ID, b.ID)
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/transfer", transferBody, nil); status != fiber.StatusCreated {
		t.Fatalf("transfer: status %d", status)
	}

	var fetched accountBody
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", a.ID), "", &fetched); status != fiber.StatusOK {
		t.Fatalf("get account: status %d", status)
	}
	if fetched.Balance != "120.25" {
		t.Fatalf("replayed deposit applied twice or transfer lost: balance %s", fetched.Balance)
	}

	var history []struct {
		Type string `json:"type"`
	}
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/transactions/%d", a.ID), "", &history); status != fiber.StatusOK {
		t.Fatalf("history: status %d", status)
	}
	if len(history) != 2 || history[0].Type != "transfer_out" || history[1].Type != "deposit" {
		t.Fatalf("unexpected history: %+v", history)
	}

	var all []json.RawMessage
	if status := c.do(fiber.MethodGet, "/api/v1/transactions", "", &all); status != fiber.StatusOK || len(all) != 3 {
		t.Fatalf("all history: status %d, %d records", status, len(all))
	}

	var summary struct {
		NetChange string `json:"net_change"`
		Records   int    `json:"records"`
	}
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/transactions/summary/%d", a.ID), "", &summary); status != fiber.StatusOK {
		t.Fatalf("summary: status %d", status)
	}
	if summary.NetChange != "20.25" || summary.Records != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var rec struct {
		Balanced bool `json:"balanced"`
	}
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/reconcile", b.ID), "", &rec); status != fiber.StatusOK || !rec.Balanced {
		t.Fatalf("reconcile: status %d balanced %v", status, rec.Balanced)
	}
}

func TestAccountUpdateKeepsBalance(t *testing.T) {
	c := newClient(t)
	a := c.openAccount("Alice", "100.00")
	depositBody := fmt.Sprintf(`{"acc_no":%d,"amount":"5.50"}`, a.ID)
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/deposit", depositBody, nil); status != fiber.StatusCreated {
		t.Fatalf("deposit: status %d", status)
	}

	var updated struct {
		accountBody
		Branch   string `json:"branch_name"`
		Customer struct {
			Name string `json:"cust_name"`
			City string `json:"cust_city"`
		} `json:"customer"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%d", a.ID)
	body := `{"branch_name":"Uptown","cust_city":"Dolisie","balance":"999999"}`
	if status := c.do(fiber.MethodPut, path, body, &updated); status != fiber.StatusOK {
		t.Fatalf("update: status %d", status)
	}
	if updated.Branch != "Uptown" || updated.Customer.City != "Dolisie" || updated.Customer.Name != "Alice" {
		t.Fatalf("unexpected update response: %+v", updated)
	}
	if updated.Balance != "105.50" {
		t.Fatalf("update must not change the balance, got %s", updated.Balance)
	}

	var rec struct {
		Balance  string `json:"balance"`
		Balanced bool   `json:"balanced"`
	}
	if status := c.do(fiber.MethodGet, path+"/reconcile", "", &rec); status != fiber.StatusOK {
		t.Fatalf("reconcile: status %d", status)
	}
	if !rec.Balanced || rec.Balance != "105.50" {
		t.Fatalf("account out of balance after update: %+v", rec)
	}

	if status := c.do(fiber.MethodPut, path, `{"branch_name":" "}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("blank branch: expected 400, got %d", status)
	}
	if status := c.do(fiber.MethodPut, "/api/v1/accounts/404", `{"branch_name":"X"}`, nil); status != fiber.StatusNotFound {
		t.Fatalf("missing account: expected 404, got %d", status)
	}
}

func TestReusedKeyWithDifferentAmountIsRejected(t *testing.T) {
	c := newClient(t)
	a := c.openAccount("Alice", "100.00")

	first := fmt.Sprintf(`{"acc_no":%d,"amount":"10"}`, a.ID)
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/withdraw", first, nil, "wd-1"); status != fiber.StatusCreated {
		t.Fatalf("withdraw: status %d", status)
	}
	second := fmt.Sprintf(`{"acc_no":%d,"amount":"90"}`, a.ID)
	if status := c.do(fiber.MethodPost, "/api/v1/transactions/withdraw", second, nil, "wd-1"); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for reused key, got %d", status)
	}

	var fetched accountBody
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", a.ID), "", &fetched); status != fiber.StatusOK {
		t.Fatalf("get account: status %d", status)
	}
	if fetched.Balance != "90.00" {
		t.Fatalf("expected only the first withdrawal applied, balance %s", fetched.Balance)
	}
}

func TestMoneyMovementErrors(t *testing.T) {
	c := newClient(t)
	a := c.openAccount("Alice", "30")

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"insufficient funds", "/api/v1/transactions/withdraw", fmt.Sprintf(`{"acc_no":%d,"amount":"50"}`, a.ID), fiber.StatusBadRequest},
		{"zero amount", "/api/v1/transactions/deposit", fmt.Sprintf(`{"acc_no":%d,"amount":"0"}`, a.ID), fiber.StatusBadRequest},
		{"negative amount", "/api/v1/transactions/deposit", fmt.Sprintf(`{"acc_no":%d,"amount":"-5"}`, a.ID), fiber.StatusBadRequest},
		{"same account", "/api/v1/transactions/transfer", fmt.Sprintf(`{"from_acc_no":%d,"to_acc_no":%d,"amount":"5"}`, a.ID, a.ID), fiber.StatusBadRequest},
		{"missing account", "/api/v1/transactions/deposit", `{"acc_no":999,"amount":"5"}`, fiber.StatusNotFound},
		{"malformed body", "/api/v1/transactions/deposit", `{"acc_no":`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if status := c.do(fiber.MethodPost, tc.path, tc.body, nil); status != tc.want {
				t.Fatalf("expected %d got %d", tc.want, status)
			}
		})
	}

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/transactions/deposit", strings.NewReader(`{"acc_no":1,"amount":"1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := c.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected missing idempotency key to be rejected, got %d", resp.StatusCode)
	}

	var fetched accountBody
	c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", a.ID), "", &fetched)
	if fetched.Balance != "30.00" {
		t.Fatalf("failed calls changed the balance: %s", fetched.Balance)
	}
	if status := c.do(fiber.MethodGet, "/api/v1/transactions/abc", "", nil); status != fiber.StatusBadRequest {
		t.Fatalf("expected invalid account number, got %d", status)
	}
}

func TestLoanLifecycle(t *testing.T) {
	c := newClient(t)
	owner := c.openAccount("Borrower", "0")

	var loan struct {
		ID     int64  `json:"loan_no"`
		Status string `json:"status"`
		Amount string `json:"amount"`
	}
	body := fmt.Sprintf(`{"branch_name":"Main","amount":"500","installments":6,"cust_id":%d}`, owner.CustomerID)
	if status := c.do(fiber.MethodPost, "/api/v1/loans", body, &loan); status != fiber.StatusCreated {
		t.Fatalf("apply: status %d", status)
	}
	if loan.Status != "pending" || loan.Amount != "500.00" {
		t.Fatalf("unexpected loan: %+v", loan)
	}
	loanPath := fmt.Sprintf("/api/v1/loans/%d", loan.ID)

	if status := c.do(fiber.MethodPut, loanPath+"/approve", "", nil); status != fiber.StatusOK {
		t.Fatalf("approve: status %d", status)
	}
	if status := c.do(fiber.MethodPut, loanPath+"/approve", "", nil); status != fiber.StatusBadRequest {
		t.Fatalf("second approve: expected 400 got %d", status)
	}
	if status := c.do(fiber.MethodPut, loanPath+"/installments", `{"installments_remaining":-1}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("negative installments: expected 400 got %d", status)
	}
	if status := c.do(fiber.MethodPut, loanPath+"/installments", `{"installments_remaining":3}`, nil); status != fiber.StatusOK {
		t.Fatalf("set installments: status %d", status)
	}

	var remaining struct {
		N int `json:"installments_remaining"`
	}
	if status := c.do(fiber.MethodGet, loanPath+"/installments", "", &remaining); status != fiber.StatusOK || remaining.N != 3 {
		t.Fatalf("installments: status %d remaining %d", status, remaining.N)
	}

	var approved []json.RawMessage
	if status := c.do(fiber.MethodGet, "/api/v1/loans/status/approved", "", &approved); status != fiber.StatusOK || len(approved) != 1 {
		t.Fatalf("by status: status %d, %d loans", status, len(approved))
	}
	if status := c.do(fiber.MethodGet, "/api/v1/loans/status/bogus", "", nil); status != fiber.StatusBadRequest {
		t.Fatalf("unknown status: expected 400 got %d", status)
	}
	if status := c.do(fiber.MethodGet, "/api/v1/loans/999", "", nil); status != fiber.StatusNotFound {
		t.Fatalf("missing loan: expected 404 got %d", status)
	}
	if status := c.do(fiber.MethodPost, "/api/v1/loans", `{"branch_name":"Main","amount":"5","installments":1,"cust_id":999}`, nil); status != fiber.StatusNotFound {
		t.Fatalf("unknown customer: expected 404 got %d", status)
	}
}

func TestCustomersAndHealth(t *testing.T) {
	c := newClient(t)

	var created struct {
		ID int64 `json:"cust_id"`
	}
	if status := c.do(fiber.MethodPost, "/api/v1/customers", `{"cust_name":"Carol","cust_city":"Pointe-Noire"}`, &created); status != fiber.StatusCreated {
		t.Fatalf("create customer: status %d", status)
	}
	if status := c.do(fiber.MethodPost, "/api/v1/customers", `{"cust_name":""}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("nameless customer: expected 400 got %d", status)
	}
	if status := c.do(fiber.MethodGet, fmt.Sprintf("/api/v1/customers/%d", created.ID), "", nil); status != fiber.StatusOK {
		t.Fatalf("get customer: status %d", status)
	}
	if status := c.do(fiber.MethodGet, "/api/v1/customers/404", "", nil); status != fiber.StatusNotFound {
		t.Fatalf("missing customer: expected 404 got %d", status)
	}

	var health struct {
		Status map[string]string `json:"status"`
	}
	if status := c.do(fiber.MethodGet, "/healthz", "", &health); status != fiber.StatusOK {
		t.Fatalf("healthz: status %d", status)
	}
	if health.Status["redis"] != "ok" || health.Status["postgres"] != "disabled" {
		t.Fatalf("unexpected health: %+v", health.Status)
	}
}

func TestSetupRequiresDatabaseOutsideDevelopment(t *testing.T) {
	err := Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "production"}, Logger: logging.Discard()})
	if err == nil {
		t.Fatal("expected setup to refuse in-memory stores in production")
	}
}
