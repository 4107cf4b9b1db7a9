package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attaboy/matchwager/internal/auth"
	"github.com/attaboy/matchwager/internal/domain"
	"github.com/attaboy/matchwager/internal/guard"
	"github.com/attaboy/matchwager/internal/handler"
	"github.com/attaboy/matchwager/internal/oracle"
	"github.com/attaboy/matchwager/internal/pause"
	"github.com/attaboy/matchwager/internal/registry"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/attaboy/matchwager/internal/wager"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000001")
	oracleKey = common.HexToAddress("0x0000000000000000000000000000000000000002")
	engineKey = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	player1   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	player2   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type server struct {
	t        *testing.T
	http     *httptest.Server
	jwt      *auth.JWTManager
	registry *registry.Memory
	pause    *pause.Static
	nanos    atomic.Int64
}

func (s *server) clock() time.Time        { return time.Unix(0, s.nanos.Load()).UTC() }
func (s *server) advance(d time.Duration) { s.nanos.Add(int64(d)) }

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &server{
		t:        t,
		jwt:      auth.NewJWTManager("test-secret-that-is-long-enough-123", time.Hour),
		registry: registry.NewMemory(),
		pause:    pause.NewStatic(false),
	}
	s.nanos.Store(time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC).UnixNano())
	store := repository.NewMemoryStore()

	svc, err := oracle.NewService(ctx, owner, oracleKey, store, s.pause, logger, oracle.WithClock(s.clock))
	require.NoError(t, err)
	eng, err := wager.NewEngine(engineKey, store,
		guard.NewBreakerRegistry(s.registry, guard.NewCircuitBreaker(5, time.Minute)),
		s.pause, logger, wager.WithClock(s.clock))
	require.NoError(t, err)

	router := NewRouter(RouterDeps{
		Oracle:      svc,
		Engine:      eng,
		JWTMgr:      s.jwt,
		Logger:      logger,
		RateLimiter: guard.NewRateLimiter(1000, time.Minute),
		Idempotency: guard.NewIdempotencyGuard(time.Hour),
		HealthChecks: []handler.HealthCheck{
			{Name: "store", Check: func(context.Context) error { return nil }},
		},
	})
	s.http = httptest.NewServer(router)
	t.Cleanup(s.http.Close)

	for token, holder := range map[domain.TokenID]common.Address{1: player1, 2: player2} {
		require.NoError(t, s.registry.Mint(ctx, holder, token))
		require.NoError(t, s.registry.Approve(ctx, holder, engineKey, token))
	}
	return s
}

func (s *server) do(as common.Address, method, path string, body any, headers ...string) (int, map[string]any) {
	s.t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.http.URL+path, rdr)
	require.NoError(s.t, err)
	if as != (common.Address{}) {
		token, err := s.jwt.GenerateToken(as)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestRouter_Health(t *testing.T) {
	s := newServer(t)
	status, body := s.do(common.Address{}, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_RequiresBearer(t *testing.T) {
	s := newServer(t)
	status, body := s.do(common.Address{}, http.MethodPost, "/games", map[string]any{"match_id": 7})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestRouter_FullGameOverHTTP(t *testing.T) {
	s := newServer(t)

	status, body := s.do(oracleKey, http.MethodPost, "/matches", map[string]any{
		"id":             7,
		"predict_before": s.clock().Add(time.Hour),
		"result_after":   s.clock().Add(3 * time.Hour),
		"description":    "Rovers v United",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "upcoming", body["state"])

	status, body = s.do(player1, http.MethodPost, "/games",
		map[string]any{"match_id": 7, "token_id": 1, "prediction": "home_win"},
		handler.IdempotencyHeader, "create-1")
	require.Equal(t, http.StatusCreated, status, body)
	assert.EqualValues(t, 1, body["id"])
	assert.Equal(t, "open", body["state"])

	status, body = s.do(player1, http.MethodPost, "/games",
		map[string]any{"match_id": 7, "token_id": 1, "prediction": "home_win"},
		handler.IdempotencyHeader, "create-1")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = s.do(player2, http.MethodPost, "/games/1/predictions",
		map[string]any{"token_id": 2, "prediction": "home_win"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "P2_PREDICTION_INVALID", body["code"])

	status, body = s.do(player2, http.MethodPost, "/games/1/predictions",
		map[string]any{"token_id": 2, "prediction": "away_win"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "predictions_received", body["state"])

	owner1, _ := s.registry.OwnerOf(context.Background(), 1)
	assert.Equal(t, engineKey, owner1)

	status, body = s.do(player2, http.MethodPost, "/games/1/withdraw", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "GAME_MATCH_RESULT_NOT_RECEIVED", body["code"])

	s.advance(4 * time.Hour)
	status, body = s.do(oracleKey, http.MethodPost, "/matches/7/result", map[string]any{"result": "home_win"})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(player2, http.MethodPost, "/games/1/withdraw", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "player1_win", body["state"])

	for _, token := range []domain.TokenID{1, 2} {
		holder, err := s.registry.OwnerOf(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, player1, holder)
	}

	status, body = s.do(common.Address{}, http.MethodGet, "/tokens/1/game", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["game_id"])

	status, body = s.do(common.Address{}, http.MethodGet, "/games/count", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = s.do(common.Address{}, http.MethodGet, "/players/"+player2.Hex()+"/games", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{float64(1)}, body["game_ids"])
}

func TestRouter_QueriesNeedWhitelist(t *testing.T) {
	s := newServer(t)
	reader := common.HexToAddress("0x00000000000000000000000000000000000000d4")

	status, body := s.do(reader, http.MethodGet, "/matches", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_WHITELISTED", body["code"])

	status, body = s.do(owner, http.MethodPost, "/admin/whitelist", map[string]any{"address": reader.Hex()})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(reader, http.MethodGet, "/matches", nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 0, body["count"])

	status, body = s.do(reader, http.MethodGet, "/matches/99/state", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "MATCH_ID_INVALID", body["code"])

	status, _ = s.do(owner, http.MethodDelete, "/admin/whitelist/"+reader.Hex(), nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(reader, http.MethodGet, "/matches", nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRouter_OracleGovernance(t *testing.T) {
	s := newServer(t)
	next := common.HexToAddress("0x0000000000000000000000000000000000000003")

	status, body := s.do(oracleKey, http.MethodPut, "/admin/oracle", map[string]any{"address": next.Hex()})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_OWNER", body["code"])

	status, body = s.do(owner, http.MethodPut, "/admin/oracle", map[string]any{"address": next.Hex()})
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(common.Address{}, http.MethodGet, "/admin/oracle", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, next.Hex(), body["oracle"])
	assert.Equal(t, owner.Hex(), body["owner"])
}

func TestRouter_PausedRejectsMutations(t *testing.T) {
	s := newServer(t)
	s.pause.Set(true)

	status, body := s.do(oracleKey, http.MethodPost, "/matches", map[string]any{
		"id":             8,
		"predict_before": s.clock().Add(time.Hour),
		"result_after":   s.clock().Add(2 * time.Hour),
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "PAUSED", body["code"])

	status, _ = s.do(common.Address{}, http.MethodGet, "/games/count", nil)
	assert.Equal(t, http.StatusOK, status)
}
