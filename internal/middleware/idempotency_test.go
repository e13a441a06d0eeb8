package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/corebank/internal/logging"
)

type testApp struct {
	app   *fiber.App
	mr    *miniredis.Miniredis
	calls atomic.Int32
}

func setupTestApp(t *testing.T) *testApp {
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

	ta := &testApp{app: fiber.New(), mr: mr}
	ta.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	ta.app.Post("/deposit", func(c *fiber.Ctx) error {
		n := ta.calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	ta.app.Post("/withdraw", func(c *fiber.Ctx) error {
		n := ta.calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	ta.app.Post("/failing", func(c *fiber.Ctx) error {
		ta.calls.Add(1)
		return fiber.NewError(fiber.StatusServiceUnavailable, "down")
	})
	ta.app.Get("/history", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return ta
}

func (ta *testApp) post(t *testing.T, path, key string) (int, string, string) {
	t.Helper()
	return ta.postBody(t, path, key, "{}")
}

func (ta *testApp) postBody(t *testing.T, path, key, payload string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body), resp.Header.Get(idempotencyReplayHeader)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	ta := setupTestApp(t)

	if status, _, _ := ta.post(t, "/deposit", ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if status, _, _ := ta.post(t, "/deposit", strings.Repeat("k", maxIdempotencyKeyLen+1)); status != fiber.StatusBadRequest {
		t.Fatalf("expected oversized key to be rejected, got %d", status)
	}
	if ta.calls.Load() != 0 {
		t.Fatal("handler ran without a valid key")
	}
}

func TestIdempotencySkipsSafeMethods(t *testing.T) {
	ta := setupTestApp(t)

	resp, err := ta.app.Test(httptest.NewRequest(fiber.MethodGet, "/history", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected GET to pass through, got %d", resp.StatusCode)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	ta := setupTestApp(t)

	status, body, replayed := ta.post(t, "/deposit", "abc123")
	if status != fiber.StatusCreated || replayed != "" {
		t.Fatalf("unexpected first response %d replayed=%q", status, replayed)
	}

	status2, body2, replayed2 := ta.post(t, "/deposit", "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status2)
	}
	if body2 != body {
		t.Fatalf("expected cached payload %s got %s", body, body2)
	}
	if replayed2 != "true" {
		t.Fatal("expected replay header on cached response")
	}
	if ta.calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", ta.calls.Load())
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(body2), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	ta := setupTestApp(t)

	if status, _, _ := ta.postBody(t, "/deposit", "reused", `{"amount":"10"}`); status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}
	status, _, replayed := ta.postBody(t, "/deposit", "reused", `{"amount":"1000"}`)
	if status != fiber.StatusUnprocessableEntity || replayed != "" {
		t.Fatalf("expected %d without replay, got %d replayed=%q", fiber.StatusUnprocessableEntity, status, replayed)
	}
	if status, _, replayed := ta.postBody(t, "/deposit", "reused", `{"amount":"10"}`); status != fiber.StatusCreated || replayed != "true" {
		t.Fatalf("expected replay of the first body, got %d replayed=%q", status, replayed)
	}
	if ta.calls.Load() != 1 {
		t.Fatalf("handler should run once, ran %d times", ta.calls.Load())
	}
}

func TestIdempotencyKeysAreScopedByPath(t *testing.T) {
	ta := setupTestApp(t)

	ta.post(t, "/deposit", "shared")
	ta.post(t, "/withdraw", "shared")
	if ta.calls.Load() != 2 {
		t.Fatalf("same key on different paths must not collide, handler ran %d times", ta.calls.Load())
	}
}

func TestIdempotencyReleasesKeyOnError(t *testing.T) {
	ta := setupTestApp(t)

	if status, _, _ := ta.post(t, "/failing", "retry-me"); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", status)
	}
	if status, _, _ := ta.post(t, "/failing", "retry-me"); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected the retry to reach the handler, got %d", status)
	}
	if ta.calls.Load() != 2 {
		t.Fatalf("expected 2 handler calls, got %d", ta.calls.Load())
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	ta := setupTestApp(t)
	if err := ta.mr.Set(idempotencyPrefix+"POST:/deposit:busy", inProgressMarker); err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	if status, _, _ := ta.post(t, "/deposit", "busy"); status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
	if ta.calls.Load() != 0 {
		t.Fatal("handler ran for an in-flight duplicate")
	}
}

func TestIdempotencyStoreDown(t *testing.T) {
	ta := setupTestApp(t)
	ta.mr.Close()

	if status, _, _ := ta.post(t, "/deposit", "k"); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected %d got %d", fiber.StatusServiceUnavailable, status)
	}
}
