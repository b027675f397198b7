// Server runs the adaptive authentication gRPC API and the Prometheus metrics listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authv1 "adaptive-auth/backend/api/auth/v1"
	"adaptive-auth/backend/internal/audit"
	audithandler "adaptive-auth/backend/internal/audit/handler"
	auditrepo "adaptive-auth/backend/internal/audit/repository"
	"adaptive-auth/backend/internal/config"
	"adaptive-auth/backend/internal/db"
	devicerepo "adaptive-auth/backend/internal/device/repository"
	"adaptive-auth/backend/internal/devotp"
	devotphandler "adaptive-auth/backend/internal/devotp/handler"
	healthhandler "adaptive-auth/backend/internal/health/handler"
	"adaptive-auth/backend/internal/identity"
	identityrepo "adaptive-auth/backend/internal/identity/repository"
	"adaptive-auth/backend/internal/identity/service"
	"adaptive-auth/backend/internal/logging"
	"adaptive-auth/backend/internal/metrics"
	"adaptive-auth/backend/internal/mfa"
	mfarepo "adaptive-auth/backend/internal/mfa/repository"
	"adaptive-auth/backend/internal/risk"
	"adaptive-auth/backend/internal/risk/reputation"
	"adaptive-auth/backend/internal/security"
	"adaptive-auth/backend/internal/server"
	"adaptive-auth/backend/internal/telemetry"
	telemetryotel "adaptive-auth/backend/internal/telemetry/otel"
	"adaptive-auth/backend/internal/telemetry/producer"
)

const healthInterval = 10 * time.Second

// stores groups the persistence layer; Postgres when DATABASE_URL is set, in-memory otherwise.
type stores struct {
	db         *sql.DB
	users      identityrepo.Repository
	audits     auditrepo.Repository
	devices    devicerepo.Repository
	challenges mfarepo.Repository
}

func openStores(dsn string) (*stores, error) {
	if dsn == "" {
		return &stores{
			users:      identityrepo.NewMemoryRepository(),
			audits:     auditrepo.NewMemoryRepository(),
			devices:    devicerepo.NewMemoryRepository(),
			challenges: mfarepo.NewMemoryRepository(),
		}, nil
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	return &stores{
		db:         conn,
		users:      identityrepo.NewPostgresRepository(conn),
		audits:     auditrepo.NewPostgresRepository(conn),
		devices:    devicerepo.NewPostgresRepository(conn),
		challenges: mfarepo.NewPostgresRepository(conn),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("config: %v", err)
	}
	logging.Init(cfg.OTelServiceName, cfg.LogLevel, cfg.LogFormat)
	log := logging.For("main")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		log.WithError(err).Fatal("otel: providers")
	}
	providers.SetGlobal()

	st, err := openStores(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("db: open")
	}
	if st.db == nil {
		log.Warn("DATABASE_URL not set; using in-memory stores")
	}

	policySource := ""
	if cfg.ReputationPolicyFile != "" {
		b, err := os.ReadFile(cfg.ReputationPolicyFile)
		if err != nil {
			log.WithError(err).Fatal("reputation: read policy file")
		}
		policySource = string(b)
	}
	checker, err := reputation.New(ctx, reputation.Config{
		BlockedPrefixes: cfg.BlockedPrefixes(),
		BlockedCIDRs:    cfg.BlockedCIDRs(),
		PolicySource:    policySource,
	})
	if err != nil {
		log.WithError(err).Fatal("reputation: compile policy")
	}

	deliverers := mfa.MultiDeliverer{mfa.NewLogDeliverer()}
	var devOTP *devotp.MemoryStore
	if cfg.OTPReturnToClient {
		devOTP = devotp.NewMemoryStore()
		deliverers = append(deliverers, devOTP)
		log.Warn("OTP_RETURN_TO_CLIENT enabled; issued codes are readable via DevService")
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	authSvc := service.NewAuthService(
		st.users,
		identity.NewPasswordVerifier(st.users, hasher),
		risk.NewEngine(cfg.RiskPolicy(), checker, st.devices, st.audits),
		mfa.NewManager(st.challenges, cfg.ChallengeConfig()),
		deliverers,
		audit.NewRecorder(st.audits),
		st.devices,
	)

	emitters := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.WithField("topic", cfg.TelemetryKafkaTopic).Info("telemetry: kafka producer enabled")
	}
	authSvc.SetEmitter(emitters)

	var pinger healthhandler.Pinger
	if st.db != nil {
		pinger = st.db
	}
	health := healthhandler.NewServer(pinger, checker, authv1.AuthService_ServiceDesc.ServiceName)
	go health.Run(ctx, healthInterval)

	deps := server.Deps{
		Auth:      authSvc,
		Health:    health,
		RiskDebug: cfg.DebugRiskEnabled && !cfg.IsProduction(),
	}
	if deps.RiskDebug {
		deps.AuditHandler = audithandler.NewServer(st.users, st.audits)
		log.Warn("DEBUG_RISK_ENABLED; operator debug and audit services registered")
	}
	if devOTP != nil {
		deps.DevOTPHandler = devotphandler.NewServer(devOTP)
	}
	s := server.NewGRPCServer(emitters)
	server.RegisterServices(s, deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("listen")
	}
	go func() {
		log.WithField("addr", cfg.GRPCAddr).Info("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			log.WithError(err).Fatal("serve")
		}
	}()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("metrics listening")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gRPC server...")
	stop()
	s.GracefulStop()
	log.Info("gRPC server stopped")

	// In-flight async emits and code deliveries run on background contexts.
	time.Sleep(telemetry.ShutdownDrainDuration)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("otel: shutdown")
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.WithError(err).Warn("kafka: close")
		}
	}
	if st.db != nil {
		_ = st.db.Close()
	}
}
