package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"trrhub/internal/assist"
	assistopenai "trrhub/internal/assist/openai"
	jwttoken "trrhub/internal/jwt_token"
	"trrhub/internal/platform/config"
	"trrhub/internal/platform/httpserver"
	"trrhub/internal/platform/logger"
	"trrhub/internal/platform/metrics"
	platformredis "trrhub/internal/platform/redis"
	"trrhub/internal/review"
	"trrhub/internal/storage"
	"trrhub/internal/timeline"
	timelinekafka "trrhub/internal/timeline/kafka"
	timelinemem "trrhub/internal/timeline/store/memory"
	timelinepg "trrhub/internal/timeline/store/postgres"
	httptransport "trrhub/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal
// services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var docs storage.DocumentStore
	var events timeline.Store
	var clock timeline.Clock

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		pgDocs := storage.NewPostgresDocumentStore(db)
		docs = pgDocs
		events = timelinepg.New(db)
		clock = pgDocs.ServerTime
		log.Info("using postgres stores")
	} else {
		docs = storage.NewInMemoryDocumentStore()
		events = timelinemem.New()
		log.Info("using in-memory stores")
	}

	publisherOpts := []timeline.PublisherOption{timeline.WithLogger(log)}
	if clock != nil {
		publisherOpts = append(publisherOpts, timeline.WithClock(clock))
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := timelinekafka.NewSink(cfg.KafkaBrokers, timelinekafka.WithLogger(log))
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		publisherOpts = append(publisherOpts, timeline.WithSink(sink))
		log.Info("timeline kafka sink enabled", "brokers", cfg.KafkaBrokers)
	}
	publisher, err := timeline.NewPublisher(events, publisherOpts...)
	if err != nil {
		log.Error("build timeline publisher", "error", err)
		os.Exit(1)
	}

	serverMetrics := metrics.New()
	reviews, err := review.NewService(review.NewStore(), docs,
		review.WithEmitter(publisher), review.WithLogger(log),
		review.WithMetrics(serverMetrics))
	if err != nil {
		log.Error("build review service", "error", err)
		os.Exit(1)
	}

	var cache assist.Cache
	var sweeper *assist.MemoryCache
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cache, err = assist.NewRedisCache(redisClient.Client)
		if err != nil {
			log.Error("build redis cache", "error", err)
			os.Exit(1)
		}
		log.Info("suggestion cache backed by redis")
	} else {
		memoryCache := assist.NewMemoryCache()
		cache = memoryCache
		sweeper = memoryCache
	}

	var suggesterOpts []assistopenai.Option
	if cfg.OpenAIModel != "" {
		suggesterOpts = append(suggesterOpts, assistopenai.WithModel(cfg.OpenAIModel))
	}
	suggester, err := assistopenai.NewClient(cfg.OpenAIKey, suggesterOpts...)
	if err != nil {
		log.Error("build suggestion client", "error", err)
		os.Exit(1)
	}

	limiter := assist.NewLimiter(
		assist.WithQuota(cfg.AssistQuota),
		assist.WithWindow(cfg.AssistWindow),
	)
	assistService, err := assist.NewService(cache, limiter, suggester,
		assist.WithTTL(cfg.AssistTTL),
		assist.WithMetrics(assist.NewMetrics()),
		assist.WithLogger(log))
	if err != nil {
		log.Error("build assist service", "error", err)
		os.Exit(1)
	}

	validator := jwttoken.NewService(cfg.JWTSigningKey, "trrhub", "trrhub-api")

	router := httptransport.NewRouter(
		httptransport.NewReviewHandler(reviews, publisher, validator, log),
		httptransport.NewAssistHandler(assistService, validator, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting trrhub", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := reviews.WatchRemote(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if sweeper != nil {
		group.Go(func() error {
			sweeper.Sweep(ctx, cfg.AssistSweep)
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
