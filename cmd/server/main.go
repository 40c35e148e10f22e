package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"admissio/internal/applicant"
	applicanthandler "admissio/internal/applicant/handler"
	"admissio/internal/application"
	applicationhandler "admissio/internal/application/handler"
	applicationmetrics "admissio/internal/application/metrics"
	"admissio/internal/artifact"
	artifactadapters "admissio/internal/artifact/adapters"
	artifacthandler "admissio/internal/artifact/handler"
	artifactmetrics "admissio/internal/artifact/metrics"
	"admissio/internal/catalog"
	cataloghandler "admissio/internal/catalog/handler"
	"admissio/internal/document"
	documentadapters "admissio/internal/document/adapters"
	documenthandler "admissio/internal/document/handler"
	documentmetrics "admissio/internal/document/metrics"
	"admissio/internal/evaluation"
	evaluationhandler "admissio/internal/evaluation/handler"
	evaluationmetrics "admissio/internal/evaluation/metrics"
	httpapi "admissio/internal/http"
	"admissio/internal/payment"
	paymentadapters "admissio/internal/payment/adapters"
	paymenthandler "admissio/internal/payment/handler"
	paymentmetrics "admissio/internal/payment/metrics"
	"admissio/internal/platform/config"
	"admissio/internal/platform/httpserver"
	"admissio/internal/platform/lock"
	"admissio/internal/platform/logger"
	"admissio/internal/platform/middleware"
	"admissio/internal/platform/postgres"
	redisplatform "admissio/internal/platform/redis"
	"admissio/internal/results"
	resultshandler "admissio/internal/results/handler"
	resultsmetrics "admissio/internal/results/metrics"
	"admissio/pkg/platform/audit"
	auditmemory "admissio/pkg/platform/audit/store/memory"
	auditpostgres "admissio/pkg/platform/audit/store/postgres"
	auditworker "admissio/pkg/platform/audit/worker"
	txcontext "admissio/pkg/platform/tx"
)

// stores groups the persistence backends so the service wiring below
// does not care whether postgres is configured.
type stores struct {
	applicants  applicant.Store
	apps        application.Store
	payments    payment.Store
	documents   document.Store
	evaluations evaluation.Store
	publications results.Store
	calls       catalog.Store
	params      catalog.ParamsStore
	audit       audit.Store
	outbox      *auditpostgres.Store
	runner      txcontext.Runner
}

func memoryStores() stores {
	return stores{
		applicants:   applicant.NewInMemoryStore(),
		apps:         application.NewInMemoryStore(),
		payments:     payment.NewInMemoryStore(),
		documents:    document.NewInMemoryStore(),
		evaluations:  evaluation.NewInMemoryStore(),
		publications: results.NewInMemoryStore(),
		calls:        catalog.NewInMemoryStore(),
		params:       catalog.NewInMemoryParamsStore(),
		audit:        auditmemory.New(),
		runner:       txcontext.NopRunner{},
	}
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := memoryStores()
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		outbox := auditpostgres.New(db)
		st = stores{
			applicants:   applicant.NewPostgresStore(db),
			apps:         application.NewPostgresStore(db),
			payments:     payment.NewPostgresStore(db),
			documents:    document.NewPostgresStore(db),
			evaluations:  evaluation.NewPostgresStore(db),
			publications: results.NewPostgresStore(db),
			calls:        catalog.NewPostgresStore(db),
			params:       catalog.NewPostgresParamsStore(db),
			audit:        outbox,
			outbox:       outbox,
			runner:       txcontext.DBRunner{DB: db},
		}
	}

	var locker lock.Locker = lock.NewLocal()
	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedis(redisClient.Client)
	}

	publisher := audit.NewPublisher(st.audit, log)

	artifactSvc := artifact.NewService(artifact.NewInMemoryStore(), artifactadapters.NewStubRenderer(), artifactmetrics.New(), log)
	applicantSvc := applicant.NewService(st.applicants, log)
	applicationSvc := application.NewService(st.apps, st.calls, st.params, st.applicants, publisher, applicationmetrics.New(), log)
	paymentSvc := payment.NewService(st.payments, applicationSvc, st.calls, paymentadapters.NewStubCheckout(), artifactSvc, publisher, paymentmetrics.New(), log)
	documentSvc := document.NewService(st.documents, applicationSvc, st.calls, st.params, documentadapters.NewStubBlobStore(), publisher, documentmetrics.New(), log)
	evaluationSvc := evaluation.NewService(st.evaluations, applicationSvc, publisher, evaluationmetrics.New(), log)
	resultsSvc := results.NewService(st.publications, applicationSvc, st.calls, locker, st.runner, artifactSvc, publisher, resultsmetrics.New(), log)

	auth := middleware.NewAuthenticator(cfg.JWTSigningKey)
	router := httpapi.NewRouter(auth, httpapi.Handlers{
		Applicant:   applicanthandler.New(applicantSvc, log),
		Application: applicationhandler.New(applicationSvc, log),
		Payment:     paymenthandler.New(paymentSvc, log),
		Document:    documenthandler.New(documentSvc, log),
		Evaluation:  evaluationhandler.New(evaluationSvc, log),
		Results:     resultshandler.New(resultsSvc, log),
		Catalog:     cataloghandler.New(st.calls, st.params, log),
		Artifact:    artifacthandler.New(artifactSvc, log),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting admissio", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 && st.outbox != nil {
		worker, err := auditworker.New(cfg.KafkaBrokers, cfg.KafkaAuditTopic, st.outbox, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		artifactSvc.Wait()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("admissio exited", "error", err)
		os.Exit(1)
	}
	log.Info("admissio stopped")
}
