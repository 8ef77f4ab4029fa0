package main

import (
	bidding "book-auction/internal/biddingService"
	"book-auction/internal/config"
	"book-auction/internal/events"
	"book-auction/internal/repository"
	"book-auction/internal/server"
	"book-auction/internal/settlement"
	"book-auction/utils"
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		utils.Fatal("failed to load config", map[string]any{"path": *configPath, "error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		utils.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	repo, closeRepo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		utils.Fatal("failed to open auction store", map[string]any{"driver": cfg.Storage.Driver, "error": err.Error()})
	}
	closers = append(closers, closeRepo)

	registry, closeRegistry, err := openSettlement(ctx, cfg.Settlement)
	if err != nil {
		utils.Fatal("failed to open settlement registry", map[string]any{"driver": cfg.Settlement.Driver, "error": err.Error()})
	}
	closers = append(closers, closeRegistry)

	publisher, closePublisher, err := openPublisher(cfg.Events)
	if err != nil {
		utils.Fatal("failed to open event publisher", map[string]any{"driver": cfg.Events.Driver, "error": err.Error()})
	}
	closers = append(closers, closePublisher)

	biddingSvc := bidding.NewBiddingService(repo,
		bidding.WithPublisher(publisher),
		bidding.WithSettlement(registry),
		bidding.WithWithdrawalPenalty(cfg.Reputation.WithdrawalPenalty),
	)

	if cfg.SeedDemo {
		seedDemoAuctions(ctx, biddingSvc)
	}

	if err := run(ctx, cfg.Server, server.SetupRouter(biddingSvc)); err != nil {
		utils.Error("server exited with error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	utils.Info("server shut down gracefully", nil)
}

// run serves HTTP until ctx is cancelled, then drains in-flight requests
func run(ctx context.Context, cfg config.ServerConfig, router *gin.Engine) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		utils.Info("starting auction server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.StorageConfig) (repository.AuctionDB, func(), error) {
	if cfg.Driver != config.DriverPostgres {
		return repository.NewMemoryRepo(), func() {}, nil
	}

	pg := cfg.Postgres
	repo, err := repository.NewPostgresRepo(ctx, repository.PostgresConfig{
		DSN:      pg.DSN,
		Host:     pg.Host,
		Port:     pg.Port,
		Database: pg.Database,
		User:     pg.User,
		Password: pg.Password,
		SSLMode:  pg.SSLMode,
		MaxConns: pg.PoolMaxConns,
		MinConns: pg.PoolMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	if pg.RunMigrations {
		if err := repo.RunMigrations(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
	}
	return repo, repo.Close, nil
}

func openSettlement(ctx context.Context, cfg config.SettlementConfig) (settlement.Registry, func(), error) {
	if cfg.Driver != config.DriverRedis {
		return settlement.NewMemoryRegistry(), func() {}, nil
	}

	registry, err := settlement.NewRedisRegistry(ctx, settlement.RedisConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, nil, err
	}
	return registry, func() {
		if err := registry.Close(); err != nil {
			utils.Warn("failed to close redis client", map[string]any{"error": err.Error()})
		}
	}, nil
}

func openPublisher(cfg config.EventsConfig) (events.Publisher, func(), error) {
	switch cfg.Driver {
	case config.DriverRabbitMQ:
		publisher, err := events.DialRabbit(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				utils.Warn("failed to close rabbitmq connection", map[string]any{"error": err.Error()})
			}
		}, nil
	case config.DriverMemory:
		return events.NewMemoryPublisher(), func() {}, nil
	default:
		return events.LogPublisher{}, func() {}, nil
	}
}

// seedDemoAuctions adds sample auctions to an in-memory store
func seedDemoAuctions(ctx context.Context, svc *bidding.BiddingService) {
	now := time.Now().UTC()
	demos := []struct {
		itemID string
		floor  int64
		start  time.Time
		end    time.Time
	}{
		{itemID: "first-edition-dune", floor: 500, start: now, end: now.Add(time.Hour)},
		{itemID: "signed-hobbit", floor: 1200, start: now, end: now.Add(24 * time.Hour)},
		{itemID: "poetry-collection", floor: 150, start: now.Add(10 * time.Minute), end: now.Add(2 * time.Hour)},
	}

	for _, d := range demos {
		auction, err := svc.CreateAuction(ctx, d.itemID, d.floor, d.start, d.end)
		if err != nil {
			utils.Warn("failed to seed demo auction", map[string]any{"item_id": d.itemID, "error": err.Error()})
			continue
		}
		utils.Info("seeded demo auction", map[string]any{"auction_id": auction.AuctionID, "item_id": d.itemID})
	}
}

// defaultConfigPath returns AUCTION_CONFIG when set, otherwise config.toml
func defaultConfigPath() string {
	if p := os.Getenv("AUCTION_CONFIG"); p != "" {
		return p
	}
	return "config.toml"
}
