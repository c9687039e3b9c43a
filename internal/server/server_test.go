package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ftledger/internal/config"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/logging"
	"github.com/congo-pay/ftledger/internal/metadata"
	"github.com/congo-pay/ftledger/internal/middleware"
	"github.com/congo-pay/ftledger/internal/routes"
	"github.com/congo-pay/ftledger/internal/token"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(routes.Deps{
		Cfg: config.Config{
			AppName:           "ftledger-test",
			AppEnv:            "test",
			Port:              "0",
			ContractAccountID: "ft.dex.near",
			TokenSecret:       "secret",
			TokenTTL:          time.Hour,
			StorageDeposit:    ledger.NewAmount(100),
		},
		Store:  ledger.NewInMemory(),
		Logger: logging.Discard(),
		Genesis: &token.Genesis{
			Owner:       "dex.near",
			TotalSupply: ledger.NewAmount(1000),
			Metadata:    metadata.Metadata{Spec: metadata.FTSpec, Name: "Dex Token", Symbol: "DEX"},
		},
	})
	require.NoError(t, err)
	return srv
}

func TestErrorsRenderAsJSON(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/ft/transfer", strings.NewReader(`{}`))
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	resp, err := srv.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "missing bearer token", body["error"])
	require.Equal(t, "req-1", body["request_id"])
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("pq: connection refused") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "internal error", body["error"])
}

func TestBodyLimit(t *testing.T) {
	srv := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.app.Listener(ln) }()
	t.Cleanup(func() { _ = srv.app.Shutdown() })

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	// The declared length alone is over the limit, so the body is never read.
	_, err = fmt.Fprintf(conn, "POST /api/v1/ft/transfer HTTP/1.1\r\nHost: localhost\r\n"+
		"Content-Type: application/json\r\nContent-Length: %d\r\n\r\n", bodyLimit+1)
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["error"])
}
