package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/huddle-sync/internal/cache"
	"github.com/weiawesome/huddle-sync/internal/config"
	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/grpcserver"
	"github.com/weiawesome/huddle-sync/internal/handler"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/kafka"
	"github.com/weiawesome/huddle-sync/internal/moderation"
	"github.com/weiawesome/huddle-sync/internal/repository"
	"github.com/weiawesome/huddle-sync/internal/service"
	"github.com/weiawesome/huddle-sync/internal/store"
	"github.com/weiawesome/huddle-sync/pkg/database"
	"github.com/weiawesome/huddle-sync/pkg/jwt"
	pkglog "github.com/weiawesome/huddle-sync/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	hostname, _ := os.Hostname()
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty,
		ServiceName: "huddle-sync",
		InstanceID:  hostname,
	})
	logger := pkglog.L()

	// Redis
	redisClient, err := store.NewRedisClient(store.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Room catalog
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, repository.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	catalog := repository.NewGormCatalog(db)

	roleCache := cache.NewRedisRoleCache(redisClient, cfg.Redis.Prefix)
	resolver := cache.NewCachedRoleResolver(catalog, roleCache, cfg.Redis.RoleCacheTTL)
	gate := moderation.NewGate(resolver)

	// Write-behind state
	stateStore := store.NewRedisStore(redisClient, cfg.Redis.Prefix)
	if cfg.Sync.PurgeOnStart {
		purgeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		n, err := stateStore.Purge(purgeCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to purge stale playback state")
		} else if n > 0 {
			logger.Info().Int("rooms", n).Msg("purged stale playback state")
		}
	}
	writer := store.NewWriter(stateStore, cfg.Sync.WriteQueueSize, cfg.Sync.WriteTimeout, logger)
	go writer.Run(context.Background())

	// Presence fan-out to other services
	var publisher kafka.PresencePublisher = kafka.NoOpPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.PresenceTopic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, presence events will not be published")
		} else {
			publisher = producer
		}
	}

	svc := service.NewSyncService(service.Options{
		Catalog:    catalog,
		Authorizer: gate,
		Persister:  writer,
		Unread:     stateStore,
		Notifier:   publisher,
		Sink:       delivery.NewLogSink(logger),
		Logger:     logger,

		DedupWindow: cfg.Sync.DedupWindow,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to seed room directory from catalog, rooms will be looked up on first join")
	}

	var consumer kafka.MessageEventConsumer
	if cfg.Kafka.Enabled {
		cc, err := kafka.NewConfluentConsumer(cfg.Kafka.Brokers, cfg.Kafka.MessageTopic, cfg.Kafka.GroupID, svc)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka consumer, relying on the internal HTTP endpoint")
		} else if err := cc.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to start kafka consumer, relying on the internal HTTP endpoint")
			if err := cc.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close kafka consumer")
			}
		} else {
			consumer = cc
		}
	}

	jwtManager, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Hour)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create jwt manager")
	}

	wsCfg := hub.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		PongWait:       cfg.WebSocket.PongWait,
		WriteWait:      cfg.WebSocket.WriteWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}
	wsHandler := handler.NewWSHandler(svc, jwtManager, wsCfg, cfg.WebSocket.AllowedOrigins)
	httpHandler := handler.NewHandler(svc)
	router := handler.NewRouter(wsHandler, httpHandler, jwtManager, cfg.Auth.InternalKey, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcAddr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
	grpcServer := grpcserver.New(svc, cfg.GRPC.ProbeInterval, logger)
	lis, err := grpcserver.Listen(grpcAddr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", grpcAddr).Msg("failed to listen for grpc")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", grpcAddr).Msg("grpc health server starting")
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		grpcServer.Watch(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http server forced to shutdown")
		}
		grpcServer.Stop()
		if err := svc.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to stop sync service")
		}
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close kafka consumer")
			}
		}
		writer.Stop()
		if err := publisher.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close kafka producer")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("server exited")
}
