//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/attaboy/matchwager/internal/domain"
	"github.com/ethereum/go-ethereum/common"
)

// Do sends a request as principal. The zero address sends no bearer token.
func (env *TestEnv) Do(as common.Address, method, path string, body any) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if as != (common.Address{}) {
		token, err := env.JWTMgr.GenerateToken(as)
		if err != nil {
			env.t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// POST sends an authenticated POST.
func (env *TestEnv) POST(as common.Address, path string, body any) *http.Response {
	env.t.Helper()
	return env.Do(as, http.MethodPost, path, body)
}

// GET sends a GET, authenticated unless as is zero.
func (env *TestEnv) GET(as common.Address, path string) *http.Response {
	env.t.Helper()
	return env.Do(as, http.MethodGet, path, nil)
}

// MintApproved mints token to holder and approves the engine over it.
func (env *TestEnv) MintApproved(holder common.Address, token domain.TokenID) {
	env.t.Helper()
	ctx := context.Background()
	if err := env.Registry.Mint(ctx, holder, token); err != nil {
		env.t.Fatalf("mint %d: %v", token, err)
	}
	if err := env.Registry.Approve(ctx, holder, Engine, token); err != nil {
		env.t.Fatalf("approve %d: %v", token, err)
	}
}

// OwnerOf reads the registry directly.
func (env *TestEnv) OwnerOf(token domain.TokenID) common.Address {
	env.t.Helper()
	owner, err := env.Registry.OwnerOf(context.Background(), token)
	if err != nil {
		env.t.Fatalf("owner of %d: %v", token, err)
	}
	return owner
}

// OutboxEventTypes lists the outbox event types in insertion order.
func (env *TestEnv) OutboxEventTypes() []string {
	env.t.Helper()
	rows, err := env.Pool.Query(context.Background(), `SELECT "eventType" FROM event_outbox ORDER BY id`)
	if err != nil {
		env.t.Fatalf("query outbox: %v", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			env.t.Fatalf("scan outbox: %v", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		env.t.Fatalf("iterate outbox: %v", err)
	}
	return out
}

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}
