package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ftledger/internal/auth"
	"github.com/congo-pay/ftledger/internal/config"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/logging"
	"github.com/congo-pay/ftledger/internal/metadata"
	"github.com/congo-pay/ftledger/internal/middleware"
	"github.com/congo-pay/ftledger/internal/token"
)

const (
	testSecret   = "test-secret"
	testContract = "ft.dex.near"
	testOwner    = "dex.near"
)

type testEnv struct {
	app    *fiber.App
	tokens *auth.Service
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	cfg := config.Config{
		AppName:            "ftledger-test",
		AppEnv:             "test",
		ContractAccountID:  testContract,
		TokenSecret:        testSecret,
		TokenTTL:           time.Hour,
		StorageDeposit:     ledger.NewAmount(100),
		RateLimitPerMinute: 1000,
		IdempotencyTTL:     time.Minute,
	}
	app := fiber.New()
	err = Setup(app, Deps{
		Cfg:    cfg,
		Cache:  cache,
		Store:  ledger.NewInMemory(),
		Logger: logging.Discard(),
		Genesis: &token.Genesis{
			Owner:       testOwner,
			TotalSupply: ledger.NewAmount(1_000_000),
			Metadata:    metadata.Metadata{Spec: metadata.FTSpec, Name: "Dex Token", Symbol: "DEX", Decimals: 2},
		},
	})
	require.NoError(t, err)
	return &testEnv{app: app, tokens: auth.NewService(testSecret, time.Hour), mr: mr}
}

type call struct {
	method  string
	path    string
	caller  string
	deposit string
	body    string
	headers map[string]string
}

func (e *testEnv) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if c.caller != "" {
		tok, err := e.tokens.Issue(c.caller)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok.AccessToken)
	}
	if c.deposit != "" {
		req.Header.Set(middleware.AttachedDepositHeader, c.deposit)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func (e *testEnv) balance(t *testing.T, account string) string {
	t.Helper()
	status, body := e.do(t, call{method: fiber.MethodGet, path: "/api/v1/ft/balance/" + account})
	require.Equal(t, fiber.StatusOK, status)
	return body["balance"].(string)
}

func (e *testEnv) register(t *testing.T, account string) {
	t.Helper()
	status, _ := e.do(t, call{method: fiber.MethodPost, path: "/api/v1/storage/deposit", caller: account, deposit: "100"})
	require.Equal(t, fiber.StatusCreated, status)
}

func TestViews(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, call{method: fiber.MethodGet, path: "/api/v1/ft/metadata"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "DEX", body["symbol"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/ft/total_supply"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "1000000", body["total_supply"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/ft/balance/" + testOwner})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "1000000", body["balance"])
	require.Equal(t, "10000", body["display"])

	require.Equal(t, "0", env.balance(t, "nobody.near"))

	status, _ = env.do(t, call{method: fiber.MethodGet, path: "/healthz"})
	require.Equal(t, fiber.StatusOK, status)
}

func TestTransferFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice.near")

	transfer := func(caller, deposit, body string) int {
		status, _ := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/ft/transfer", caller: caller, deposit: deposit, body: body})
		return status
	}

	require.Equal(t, fiber.StatusUnauthorized, transfer("", "1", `{"receiver_id":"alice.near","amount":"10"}`))
	require.Equal(t, fiber.StatusPaymentRequired, transfer(testOwner, "", `{"receiver_id":"alice.near","amount":"10"}`))
	require.Equal(t, fiber.StatusPaymentRequired, transfer(testOwner, "2", `{"receiver_id":"alice.near","amount":"10"}`))
	require.Equal(t, fiber.StatusOK, transfer(testOwner, "1", `{"receiver_id":"alice.near","amount":"10","memo":"hi"}`))
	require.Equal(t, fiber.StatusBadRequest, transfer(testOwner, "1", `{"receiver_id":"dex.near","amount":"10"}`))
	require.Equal(t, fiber.StatusBadRequest, transfer(testOwner, "1", `{"receiver_id":"alice.near","amount":"0"}`))
	require.Equal(t, fiber.StatusBadRequest, transfer(testOwner, "1", `{"receiver_id":"alice.near","amount":"-4"}`))
	require.Equal(t, fiber.StatusNotFound, transfer(testOwner, "1", `{"receiver_id":"ghost.near","amount":"10"}`))
	require.Equal(t, fiber.StatusConflict, transfer("alice.near", "1", `{"receiver_id":"dex.near","amount":"11"}`))

	require.Equal(t, "10", env.balance(t, "alice.near"))
	require.Equal(t, "999990", env.balance(t, testOwner))
}

func TestMintAndRewardRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "player.near")

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/ft/mint", caller: testOwner, body: `{"amount":"5"}`})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "1000005", body["total_supply"])

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/ft/mint", caller: "player.near", body: `{"amount":"5"}`})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/ft/mint", caller: testOwner, body: `{"amount":"340282366920938463463374607431768211455"}`})
	require.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/ft/reward", caller: testOwner, body: `{"player_id":"player.near","amount":"5","feat":"bonus"}`})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "5", env.balance(t, "player.near"))
	require.Equal(t, "1000000", env.balance(t, testOwner))
}

func TestStorageRoutes(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/storage/deposit", caller: "alice.near", deposit: "99"})
	require.Equal(t, fiber.StatusPaymentRequired, status)

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/storage/deposit", caller: "alice.near", deposit: "150"})
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "50", body["refund"])

	status, body = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/storage/deposit", caller: "alice.near", deposit: "7"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "7", body["refund"])

	status, body = env.do(t, call{method: fiber.MethodGet, path: "/api/v1/storage/balance/alice.near"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "100", body["total"])
}

func TestInternalRoutesAreSelfOnly(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice.near")

	status, _ := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/deposit", caller: testOwner, body: `{"account_id":"alice.near","amount":"3"}`})
	require.Equal(t, fiber.StatusForbidden, status)

	status, body := env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/deposit", caller: testContract, body: `{"account_id":"alice.near","amount":"3"}`})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "3", body["balance"])

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/withdraw", caller: testContract, body: `{"account_id":"alice.near","amount":"4"}`})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/unregister", caller: testContract, body: `{"account_id":"alice.near"}`})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/withdraw", caller: testContract, body: `{"account_id":"alice.near","amount":"3"}`})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/unregister", caller: testContract, body: `{"account_id":"alice.near"}`})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, call{method: fiber.MethodPost, path: "/api/v1/internal/deposit", caller: testContract, body: `{"account_id":"alice.near","amount":"3"}`})
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestIdempotentTransferReplays(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice.near")

	c := call{
		method:  fiber.MethodPost,
		path:    "/api/v1/ft/transfer",
		caller:  testOwner,
		deposit: "1",
		body:    `{"receiver_id":"alice.near","amount":"10"}`,
		headers: map[string]string{"Idempotency-Key": "k-1"},
	}
	for i := 0; i < 2; i++ {
		status, _ := env.do(t, c)
		require.Equal(t, fiber.StatusOK, status)
	}
	require.Equal(t, "10", env.balance(t, "alice.near"))

	c.headers = nil
	for i := 0; i < 2; i++ {
		status, _ := env.do(t, c)
		require.Equal(t, fiber.StatusOK, status)
	}
	require.Equal(t, "30", env.balance(t, "alice.near"))
}

func TestSetupRequiresStore(t *testing.T) {
	err := Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "development"}, Logger: logging.Discard()})
	require.Error(t, err)

	err = Setup(fiber.New(), Deps{Cfg: config.Config{AppEnv: "production"}, Store: ledger.NewInMemory(), Logger: logging.Discard()})
	require.Error(t, err)
}
