package infrastructure

import (
	"context"

	"gigledger/internal/config"
	"gigledger/internal/repository"
	"gigledger/internal/service"
	transportHTTP "gigledger/internal/transport/http"
	transportNATS "gigledger/internal/transport/nats"
	"gigledger/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
	})

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)

	// ── Wiring ────────────────────────────────────────────────────────────
	store := repository.NewStore(db)
	cache := repository.NewBalanceCache(rdb, store)
	bus := transportNATS.NewBus(nc)

	ledger := service.NewLedger(store, bus, cache)
	catalog := service.NewCatalog(store, cache)

	servers := []Server{
		worker.NewReceiptWorker(store, nc),
		transportHTTP.NewServer(cfg.ApiAddr(), transportHTTP.ServerDeps{
			Ledger:    ledger,
			Catalog:   catalog,
			Directory: store,
			Limiter:   transportHTTP.NewLimiterStore(float64(cfg.RateRPS), cfg.RateBurst),
		}),
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
