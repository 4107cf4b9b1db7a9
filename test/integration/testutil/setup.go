//go:build integration

package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/attaboy/matchwager/internal/app"
	"github.com/attaboy/matchwager/internal/auth"
	"github.com/attaboy/matchwager/internal/guard"
	"github.com/attaboy/matchwager/internal/infra"
	"github.com/attaboy/matchwager/internal/oracle"
	"github.com/attaboy/matchwager/internal/pause"
	"github.com/attaboy/matchwager/internal/registry"
	"github.com/attaboy/matchwager/internal/repository"
	"github.com/attaboy/matchwager/internal/wager"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	TestJWTSecret = "integration-test-secret-0123456789abcdef"
	TestDBHost    = "localhost"
	TestDBPort    = 5435
	TestDBUser    = "matchwager"
	TestDBPass    = "matchwager"
	TestDBName    = "matchwager_test"
	TestPauseKey  = "matchwager:paused"
)

var (
	Owner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	Oracle = common.HexToAddress("0x0000000000000000000000000000000000000002")
	Engine = common.HexToAddress("0x00000000000000000000000000000000000000e0")
)

// TestEnv holds all resources for an integration test.
type TestEnv struct {
	Server   *httptest.Server
	Pool     *pgxpool.Pool
	Store    *repository.PgStore
	Registry *registry.Postgres
	Oracle   *oracle.Service
	Engine   *wager.Engine
	JWTMgr   *auth.JWTManager
	Redis    *miniredis.Miniredis

	nanos atomic.Int64
	t     *testing.T
}

var (
	sharedPool *pgxpool.Pool
	poolOnce   sync.Once
	poolErr    error
)

func testDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, TestDBName)
}

func bootstrapDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		TestDBUser, TestDBPass, TestDBHost, TestDBPort, "matchwager")
}

func ensureTestDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect to the main database to create the test database
	bPool, err := pgxpool.New(ctx, bootstrapDSN())
	if err != nil {
		return fmt.Errorf("connect bootstrap db: %w", err)
	}
	defer bPool.Close()

	var exists bool
	err = bPool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", TestDBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check db exists: %w", err)
	}

	if !exists {
		if _, err := bPool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", TestDBName)); err != nil {
			return fmt.Errorf("create test db: %w", err)
		}
	}
	return nil
}

func getSharedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	poolOnce.Do(func() {
		if err := ensureTestDB(); err != nil {
			poolErr = err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		poolCfg, err := pgxpool.ParseConfig(testDSN())
		if err != nil {
			poolErr = fmt.Errorf("parse pool config: %w", err)
			return
		}
		poolCfg.MaxConns = 10
		poolCfg.MinConns = 1

		sharedPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			poolErr = fmt.Errorf("create pool: %w", err)
			return
		}

		if err := infra.RunMigrations(testDSN(), quietLogger()); err != nil {
			poolErr = fmt.Errorf("run migrations: %w", err)
			sharedPool.Close()
			sharedPool = nil
			return
		}
	})

	if poolErr != nil {
		t.Fatalf("failed to initialize test pool: %v", poolErr)
	}
	return sharedPool
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// NewTestEnv creates a test environment with an httptest.Server backed by
// the real router, the test database and a miniredis pause flag. The clock
// starts at a fixed instant and only moves through Advance.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	pool := getSharedPool(t)
	env := &TestEnv{Pool: pool, t: t}
	env.nanos.Store(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC).UnixNano())

	// Clean before test to ensure isolation
	env.CleanAll()

	logger := quietLogger()
	env.Redis = miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: env.Redis.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	pauseSwitch := pause.NewRedis(rdb, TestPauseKey)

	env.Store = repository.NewPgStore(pool, repository.NewOutboxRepository(), 5, logger)
	env.Registry = registry.NewPostgres(pool)

	ctx := context.Background()
	svc, err := oracle.NewService(ctx, Owner, Oracle, env.Store, pauseSwitch, logger, oracle.WithClock(env.Now))
	if err != nil {
		t.Fatalf("oracle service: %v", err)
	}
	eng, err := wager.NewEngine(Engine, env.Store,
		guard.NewBreakerRegistry(env.Registry, guard.NewCircuitBreaker(5, time.Minute)),
		pauseSwitch, logger, wager.WithClock(env.Now))
	if err != nil {
		t.Fatalf("wager engine: %v", err)
	}
	env.Oracle, env.Engine = svc, eng

	env.JWTMgr = auth.NewJWTManager(TestJWTSecret, time.Hour)
	router := app.NewRouter(app.RouterDeps{
		Oracle:             svc,
		Engine:             eng,
		JWTMgr:             env.JWTMgr,
		Logger:             logger,
		Idempotency:        guard.NewIdempotencyGuard(time.Hour),
		CORSAllowedOrigins: "*",
	})
	env.Server = httptest.NewServer(router)

	t.Cleanup(func() {
		env.Server.Close()
		env.CleanAll()
	})
	return env
}

// Now is the environment's clock.
func (env *TestEnv) Now() time.Time {
	return time.Unix(0, env.nanos.Load()).UTC()
}

// Advance moves the clock forward.
func (env *TestEnv) Advance(d time.Duration) {
	env.nanos.Add(int64(d))
}

// SetPaused flips the pause flag the way an operator would.
func (env *TestEnv) SetPaused(paused bool) {
	env.t.Helper()
	if err := env.Redis.Set(TestPauseKey, fmt.Sprint(paused)); err != nil {
		env.t.Fatalf("set pause flag: %v", err)
	}
}
