package infrastructure

import (
	"context"

	"pocketbank/internal/config"
	"pocketbank/internal/logger"
	"pocketbank/internal/repository"
	"pocketbank/internal/service"
	transportHTTP "pocketbank/internal/transport/http"
	transportNATS "pocketbank/internal/transport/nats"
	"pocketbank/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	log := logger.New()

	db, err := connectPostgres(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(ctx, cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
		_ = log.Sync()
	})

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)

	// ── Stores ────────────────────────────────────────────────────────────
	cache := repository.NewBalanceCache(rdb)
	accountRepo := repository.NewAccountRepo(db, cache)
	txnRepo := repository.NewTransactionRepo(db)
	allowanceRepo := repository.NewAllowanceRepo(db)
	goalRepo := repository.NewGoalRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	identityRepo := repository.NewIdentityRepo(db)

	// ── Services ──────────────────────────────────────────────────────────
	bus := transportNATS.NewBus(nc)
	clock := service.NewClock()

	accounts := service.NewAccountService(accountRepo, clock, log)
	transactions := service.NewTransactionService(txnRepo, accountRepo, accountRepo, bus, clock, log)
	allowances := service.NewAllowanceService(allowanceRepo, accountRepo, transactions, clock, log)
	goals := service.NewGoalService(goalRepo, accountRepo, bus, clock, log)
	notifications := service.NewNotificationService(notificationRepo)

	// ── Servers ───────────────────────────────────────────────────────────
	h := transportHTTP.NewHandler(accounts, transactions, allowances, goals,
		notifications, identityRepo, cfg.JWTSecret, log)

	servers := []Server{
		transportHTTP.NewServer(cfg.ApiAddr(), h),
		transportNATS.NewHandler(allowances, nc, log),
		worker.NewNotifier(notificationRepo, nc, log),
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in
// reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
