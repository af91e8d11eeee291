package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	attendancehandler "attendance-tracker/backend/internal/attendance/handler"
	attendancerepo "attendance-tracker/backend/internal/attendance/repository"
	attendanceservice "attendance-tracker/backend/internal/attendance/service"
	"attendance-tracker/backend/internal/audit"
	auditrepo "attendance-tracker/backend/internal/audit/repository"
	"attendance-tracker/backend/internal/config"
	"attendance-tracker/backend/internal/db"
	"attendance-tracker/backend/internal/health"
	healthhandler "attendance-tracker/backend/internal/health/handler"
	identityhandler "attendance-tracker/backend/internal/identity/handler"
	identityrepo "attendance-tracker/backend/internal/identity/repository"
	identityservice "attendance-tracker/backend/internal/identity/service"
	photorepo "attendance-tracker/backend/internal/photo/repository"
	photoservice "attendance-tracker/backend/internal/photo/service"
	"attendance-tracker/backend/internal/policy/engine"
	policyrepo "attendance-tracker/backend/internal/policy/repository"
	"attendance-tracker/backend/internal/report"
	reporthandler "attendance-tracker/backend/internal/report/handler"
	rolerepo "attendance-tracker/backend/internal/role/repository"
	"attendance-tracker/backend/internal/security"
	"attendance-tracker/backend/internal/server"
	"attendance-tracker/backend/internal/server/middleware"
	storehandler "attendance-tracker/backend/internal/store/handler"
	storerepo "attendance-tracker/backend/internal/store/repository"
	storeservice "attendance-tracker/backend/internal/store/service"
	"attendance-tracker/backend/internal/telemetry"
	telemetryotel "attendance-tracker/backend/internal/telemetry/otel"
	"attendance-tracker/backend/internal/telemetry/producer"
	userhandler "attendance-tracker/backend/internal/user/handler"
	userrepo "attendance-tracker/backend/internal/user/repository"
	userservice "attendance-tracker/backend/internal/user/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel: shutdown: %v", err)
		}
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	signer, pub, err := loadKeys(cfg)
	if err != nil {
		log.Fatalf("keys: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AttendanceKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
		log.Printf("kafka: publishing attendance events to %s", cfg.AttendanceKafkaTopic)
	}
	emitter := telemetry.Multi(emitters...)

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.ClientIPFromContext)

	users := userrepo.NewPostgresRepository(database)
	roles := rolerepo.NewPostgresRepository(database)
	stores := storerepo.NewPostgresRepository(database)
	photos := photoservice.NewService(photorepo.NewPostgresRepository(database), photoservice.Limits{
		MaxBytes:     cfg.PhotoMaxBytes,
		MaxPixels:    cfg.PhotoMaxPixels,
		MaxDimension: cfg.PhotoMaxDimension,
	})
	sessions := attendancerepo.NewPostgresRepository(database)
	policy := engine.NewOPAEvaluator(policyrepo.NewPostgresRepository(database))

	authSvc := identityservice.NewAuthService(users, roles, identityrepo.NewPostgresRepository(database), hasher, tokens, auditLogger)
	assigner := userservice.NewAdminStoreAssigner(users, roles, stores)
	userSvc := userservice.NewService(users, roles, authSvc, assigner, auditLogger)
	storeSvc := storeservice.NewService(stores, assigner, auditLogger)

	attendanceSvc, err := attendanceservice.NewService(sessions, userSvc, stores, photos, attendanceservice.Deps{
		Policy:  policy,
		Emitter: emitter,
		Tracer:  providers.Tracer(),
		Meter:   providers.Meter(),
	})
	if err != nil {
		log.Fatalf("attendance: %v", err)
	}
	reports := report.NewEngine(sessions, cfg.BaseURL, providers.Tracer())

	checker := health.NewChecker(database, policy, 0)
	go checker.Run(ctx, cfg.HealthCheckInterval)

	router := server.NewRouter(server.Deps{
		Tokens:      tokens,
		Accounts:    userSvc,
		AuditLogger: auditLogger,
		Tracer:      providers.Tracer(),
		Emitter:     emitter,
		Auth: identityhandler.NewAuthHandler(authSvc, identityhandler.CookieOptions{
			Enabled: cfg.UseCookies,
			Secure:  cfg.CookieSecure,
			MaxAge:  cfg.AccessTTL(),
		}),
		Attendance: attendancehandler.NewHandler(attendanceSvc, photos, reports.ImageURL),
		Reports:    reporthandler.NewHandler(reports),
		Stores:     storehandler.NewHandler(storeSvc),
		Users:      userhandler.NewHandler(userSvc),
		Health:     healthhandler.NewHandler(checker),
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: serve: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	grpcServer := health.NewGRPCServer(checker)
	go func() {
		log.Printf("gRPC health server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc: serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down: draining for %s", cfg.ShutdownDrain)
	stop()
	checker.Shutdown()
	time.Sleep(cfg.ShutdownDrain)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http: shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	log.Println("server stopped")
}

// loadKeys returns the configured JWT key pair. Outside production an ephemeral pair is
// generated when no keys are configured.
func loadKeys(cfg *config.Config) (crypto.Signer, crypto.PublicKey, error) {
	if cfg.JWTPrivateKey == "" && cfg.JWTPublicKey == "" {
		if cfg.IsProduction() {
			return nil, nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY are required in production")
		}
		log.Println("keys: no JWT keys configured, using an ephemeral development key pair")
		return security.GenerateEphemeralKeyPair()
	}
	return security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
}
