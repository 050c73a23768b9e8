package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	availabilityapp "rentcal/internal/app/handlers/availability"
	bookingapp "rentcal/internal/app/handlers/booking"
	"rentcal/internal/app/middleware"
	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	domainavailability "rentcal/internal/domain/availability"
	domainbooking "rentcal/internal/domain/booking"
	domainlistings "rentcal/internal/domain/listings"
	"rentcal/internal/domain/shared/money"
	"rentcal/internal/infra/broker/kafka"
	"rentcal/internal/infra/config"
	mongostore "rentcal/internal/infra/db/mongo"
	ginserver "rentcal/internal/infra/http/gin"
	"rentcal/internal/infra/inbox"
	"rentcal/internal/infra/obs"
	outboxinfra "rentcal/internal/infra/outbox"
	"rentcal/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("production", "").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rentcal stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("rentcal stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}()

	if cfg.FixturesPath != "" {
		if err := loadCalendarFixtures(ctx, cfg.FixturesPath, st, logger); err != nil {
			logger.Warn("calendar fixtures load failed", "error", err, "path", cfg.FixturesPath)
		}
	}

	app, err := buildApplication(cfg, st, logger)
	if err != nil {
		return err
	}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: st.checks}, app.handlers)

	producer, closeProducer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProducer()
	worker := &outboxinfra.Worker{
		Queue:       st.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(worker.Run(gctx))
	})
	if cfg.KafkaEnabled() {
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, &kafka.BookingEventHandler{Bus: app.commands, Logger: logger}, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return consumer.Close()
		})
		g.Go(func() error {
			logger.Info("booking event consumer starting", "topics", cfg.KafkaBookingTopics, "group", cfg.KafkaGroupID)
			return ignoreCanceled(consumer.Run(gctx, cfg.KafkaBookingTopics))
		})
	}
	return g.Wait()
}

type bookingStore interface {
	domainbooking.Repository
	domainbooking.Ledger
}

type rulesStore interface {
	domainlistings.RulesQuery
	domainlistings.RulesWriter
}

type outboxStore interface {
	appoutbox.Outbox
	appoutbox.Queue
}

type stores struct {
	bookings    bookingStore
	adjustments domainavailability.AdjustmentRepository
	rules       rulesStore
	idempotency middleware.IdempotencyStore
	outbox      outboxStore
	inbox       bookingapp.Inbox
	checks      map[string]obs.Check
	close       func(context.Context) error
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreMode != config.StoreMongo {
		return stores{
			bookings:    memory.NewBookingStore(),
			adjustments: memory.NewAdjustmentStore(),
			rules:       memory.NewRulesStore(),
			idempotency: memory.NewIdempotencyStore(),
			outbox:      memory.NewOutbox(),
			inbox:       memory.NewInbox(),
			close:       func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return stores{}, fmt.Errorf("connect mongo: %w", err)
	}
	st := stores{
		rules:  mongostore.NewRulesRepository(client.DB),
		checks: map[string]obs.Check{"mongo": client.Ping},
		close:  client.Close,
	}
	fail := func(err error) (stores, error) {
		_ = client.Close(context.Background())
		return stores{}, err
	}
	if st.bookings, err = mongostore.NewBookingRepository(ctx, client.DB); err != nil {
		return fail(err)
	}
	if st.adjustments, err = mongostore.NewAdjustmentRepository(ctx, client.DB); err != nil {
		return fail(err)
	}
	if st.idempotency, err = mongostore.NewIdempotencyStore(ctx, client.DB); err != nil {
		return fail(err)
	}
	if st.outbox, err = outboxinfra.NewStore(ctx, client.DB); err != nil {
		return fail(err)
	}
	if st.inbox, err = inbox.NewStore(ctx, client.DB, cfg.KafkaGroupID); err != nil {
		return fail(err)
	}
	return st, nil
}

type application struct {
	handlers ginserver.Handlers
	commands commands.Bus
}

func buildApplication(cfg config.Config, st stores, logger *slog.Logger) (application, error) {
	fallback, err := money.New(cfg.FallbackNightly, cfg.Currency)
	if err != nil {
		return application{}, fmt.Errorf("fallback price: %w", err)
	}
	loader := &session.Loader{
		Bookings:     st.bookings,
		Adjustments:  st.adjustments,
		Rules:        st.rules,
		FetchTimeout: cfg.FetchTimeout,
		Fallback:     fallback,
		Currency:     cfg.Currency,
		Logger:       logger,
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[availabilityapp.SaveAdjustmentsCommand, dto.AdjustmentsSaved](commandBus, availabilityapp.SaveAdjustmentsCommand{}.Key(), &availabilityapp.SaveAdjustmentsHandler{
		Adjustments: st.adjustments,
		Outbox:      st.outbox,
		Encoder:     appoutbox.JSONEventEncoder{},
		Currency:    cfg.Currency,
		Concurrency: cfg.SaveConcurrency,
		Logger:      logger,
	})
	commands.RegisterHandler[bookingapp.ApplyBookingEventCommand, bookingapp.ApplyResult](commandBus, bookingapp.ApplyBookingEventCommand{}.Key(), &bookingapp.ApplyBookingEventHandler{
		Ledger: st.bookings,
		Inbox:  st.inbox,
		Logger: logger,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.GetCalendarQuery, dto.Calendar](queryBus, availabilityapp.GetCalendarQuery{}.Key(), &availabilityapp.GetCalendarHandler{Loader: loader})
	queries.RegisterHandler[availabilityapp.QuoteStayQuery, dto.Quote](queryBus, availabilityapp.QuoteStayQuery{}.Key(), &availabilityapp.QuoteStayHandler{Loader: loader})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Idempotency(st.idempotency, nil, cfg.IdempotencyTTL),
		middleware.OutboxFlush(st.outbox),
		middleware.Validation(middleware.SelfValidator{}),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(middleware.SelfValidator{}),
	)

	manager := session.NewManager(loader, cfg.WarningTTL, logger)
	logger.Debug("command handlers registered", "keys", commandBus.Keys())

	return application{
		handlers: ginserver.Handlers{
			Availability: ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware, Logger: logger},
			Sessions:     ginserver.SessionHandler{Sessions: manager, Logger: logger},
			HostCalendar: ginserver.HostCalendarHandler{Commands: commandBusWithMiddleware, Logger: logger},
		},
		commands: commandBusWithMiddleware,
	}, nil
}

func newProducer(cfg config.Config, logger *slog.Logger) (outboxinfra.Producer, func(), error) {
	if !cfg.KafkaEnabled() {
		logger.Info("no kafka brokers configured, outbox events are logged")
		return outboxinfra.LogProducer{Logger: logger}, func() {}, nil
	}
	p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
