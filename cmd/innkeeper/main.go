package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innkeeper/internal/app/commands"
	ariapp "innkeeper/internal/app/handlers/ari"
	pricingapp "innkeeper/internal/app/handlers/pricing"
	promoapp "innkeeper/internal/app/handlers/promo"
	providerapp "innkeeper/internal/app/handlers/provider"
	reservationapp "innkeeper/internal/app/handlers/reservation"
	taxapp "innkeeper/internal/app/handlers/tax"
	"innkeeper/internal/app/middleware"
	appoutbox "innkeeper/internal/app/outbox"
	"innkeeper/internal/app/policies"
	"innkeeper/internal/app/queries"
	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
	"innkeeper/internal/infra/broker/kafka"
	"innkeeper/internal/infra/config"
	mongodb "innkeeper/internal/infra/db/mongo"
	ginserver "innkeeper/internal/infra/http/gin"
	"innkeeper/internal/infra/notify"
	"innkeeper/internal/infra/obs"
	infraoutbox "innkeeper/internal/infra/outbox"
	"innkeeper/internal/infra/storage/memory"
	"innkeeper/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StorageMode = "memory"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if app.outboxWorker != nil {
		go func() {
			if err := app.outboxWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close(logger)
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers     ginserver.Handlers
	outboxWorker *infraoutbox.Worker
	ready        func() error
	producer     *kafka.Producer
}

func buildApplication(cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		app        application
		uowFactory uow.UoWFactory
		outboxPort appoutbox.Outbox
		idStore    middleware.IdempotencyStore
		promoRepo  domainpromo.Repository
		couponRepo domainpromo.CouponRepository
	)
	app.ready = func() error { return nil }

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, err
		}
		db := client.DB
		promoRepo = mongodb.NewPromoRepository(db)
		couponRepo = mongodb.NewCouponRepository(db)
		uowFactory = mongodb.Factory{
			DB:            db,
			InventoryRepo: mongodb.NewInventoryRepository(db),
			RatePlanRepo:  mongodb.NewRatePlanRepository(db),
			TaxRepo:       mongodb.NewTaxRepository(db),
			PromoRepo:     promoRepo,
			CouponRepo:    couponRepo,
			ProviderRepo:  mongodb.NewProviderRepository(db),
		}
		outboxPort = infraoutbox.NewStore(db)
		idStore = mongodb.NewIdempotencyStore(db, cfg.IdempotencyTTL)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		promoRepo = memory.NewPromoRepository()
		couponRepo = memory.NewCouponRepository()
		uowFactory = memory.Factory{
			InventoryRepo: memory.NewInventoryLedger(),
			RatePlanRepo:  memory.NewRatePlanStore(),
			TaxRepo:       memory.NewTaxRepository(),
			PromoRepo:     promoRepo,
			CouponRepo:    couponRepo,
			ProviderRepo:  memory.NewProviderRepository(),
		}
		outboxPort = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}

	var notifier policies.Notifier = notify.NoopNotifier{}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka producer unavailable, notifications disabled", "error", err)
		} else {
			app.producer = producer
			notifier = notify.KafkaNotifier{
				Producer:  producer,
				MailTopic: cfg.NotifyMailTopic,
				SMSTopic:  cfg.NotifySMSTopic,
				Logger:    logger,
			}
			if store, ok := outboxPort.(*infraoutbox.Store); ok {
				app.outboxWorker = &infraoutbox.Worker{
					Store:       store,
					Producer:    producer,
					Interval:    cfg.OutboxPollInterval,
					TopicPrefix: cfg.KafkaTopicPrefix,
					Backoff:     cfg.RetryBackoff,
				}
			}
		}
	}

	var uploader policies.Uploader = s3.NoopUploader{}
	if cfg.S3Endpoint != "" {
		client, err := s3.NewClient(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger)
		if err != nil {
			logger.Warn("s3 uploader unavailable", "error", err)
		} else {
			uploader = client
		}
	}

	encoder := appoutbox.JSONEventEncoder{}
	discounts := func(unit uow.UnitOfWork) domainpromo.Source {
		return domainpromo.CompositeSource{
			Primary: domainpromo.PromocodeLedger{Repo: unit.Promos()},
			Legacy:  domainpromo.CouponLedger{Repo: unit.Coupons()},
		}
	}
	// Read-only source for quoting; validation there never consumes quota.
	quoteDiscounts := domainpromo.CompositeSource{
		Primary: domainpromo.PromocodeLedger{Repo: promoRepo},
		Legacy:  domainpromo.CouponLedger{Repo: couponRepo},
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, ariapp.IngestBatchCommand{}.Key(), &ariapp.IngestBatchHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxPort,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, promoapp.ApplyPromoCommand{}.Key(), &promoapp.ApplyPromoHandler{
		UoWFactory: uowFactory,
		Discounts:  discounts,
		Outbox:     outboxPort,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, promoapp.CancelUsageCommand{}.Key(), &promoapp.CancelUsageHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxPort,
		Encoder:    encoder,
	})
	commands.RegisterHandler(commandBus, promoapp.CreatePromocodeCommand{}.Key(), &promoapp.CreatePromocodeHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, taxapp.CreateRuleCommand{}.Key(), &taxapp.CreateRuleHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, taxapp.CreateGroupCommand{}.Key(), &taxapp.CreateGroupHandler{
		UoWFactory: uowFactory,
	})
	commands.RegisterHandler(commandBus, reservationapp.ReserveRoomsCommand{}.Key(), &reservationapp.ReserveRoomsHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxPort,
		Encoder:    encoder,
		Notifier:   notifier,
	})
	commands.RegisterHandler(commandBus, providerapp.AssignProviderCommand{}.Key(), &providerapp.AssignProviderHandler{
		UoWFactory: uowFactory,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, pricingapp.QuoteStayQuery{}.Key(), &pricingapp.QuoteStayHandler{
		UoWFactory: uowFactory,
		Discounts:  quoteDiscounts,
	})
	queries.RegisterHandler(queryBus, promoapp.ValidatePromoQuery{}.Key(), &promoapp.ValidatePromoHandler{
		UoWFactory: uowFactory,
		Discounts:  discounts,
	})
	queries.RegisterHandler(queryBus, taxapp.GroupRulesQuery{}.Key(), &taxapp.GroupRulesHandler{
		UoWFactory: uowFactory,
	})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxPort),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		ARI:         ginserver.ARIHandler{Commands: commandBusWithMiddleware},
		Pricing:     ginserver.PricingHandler{Queries: queryBusWithMiddleware},
		Promo:       ginserver.PromoHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Tax:         ginserver.TaxHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Reservation: ginserver.ReservationHandler{Commands: commandBusWithMiddleware},
		Provider:    ginserver.ProviderHandler{Commands: commandBusWithMiddleware},
		Media:       ginserver.MediaHandler{Uploader: uploader},
	}
	return app, nil
}

func (a application) close(logger *slog.Logger) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("kafka producer close failed", "error", err)
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
