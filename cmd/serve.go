package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"onboarding-service/internal/details"
	"onboarding-service/internal/events"
	"onboarding-service/internal/live"
	"onboarding-service/internal/navigation"
	"onboarding-service/internal/profile"
	"onboarding-service/internal/roles"
	"onboarding-service/internal/session"
	"onboarding-service/internal/users"
	"onboarding-service/migrations"
	"onboarding-service/pkg/config"
	"onboarding-service/pkg/db"
	"onboarding-service/pkg/firebase"
	"onboarding-service/pkg/jwt"
	"onboarding-service/pkg/kafka"
	"onboarding-service/pkg/logger"
	rredis "onboarding-service/pkg/redis"
)

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── 1. Logging + JWT secret ──
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := jwt.Init(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
		return err
	}

	// ── 2. PostgreSQL (accounts, and profiles unless Firestore is used) ──
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	// ── 3. Profile store ──
	var profiles profile.Store
	switch cfg.Profile.Backend {
	case "firestore":
		fb, err := firebase.NewConnector(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		defer fb.Close()
		profiles = profile.NewFirestoreStore(fb.Firestore)
	default:
		profiles = profile.NewPostgresStore(database.Pool)
	}
	log.Info().Str("backend", cfg.Profile.Backend).Msg("profile store ready")

	// ── 4. Session state ──
	var sessions session.Store
	switch cfg.Session.Backend {
	case "memory":
		sessions = session.NewMemoryStore()
	default:
		redisClient, err := rredis.NewClient(cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.Session.TTL, cfg.Session.LockTTL)
	}

	// ── 5. Kafka + live navigation ──
	hub := live.NewHub(log)
	var (
		publisher events.Publisher     = events.Discard{}
		nav       navigation.Navigator = hub
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient := kafka.NewClient(cfg.Kafka.Brokers)
		defer kafkaClient.Close()

		if err := kafkaClient.EnsureTopics(ctx,
			kafka.TopicRoleSelected,
			kafka.TopicDetailsSubmitted,
			kafka.TopicNavigation,
		); err != nil {
			return err
		}
		publisher = kafkaClient
		nav = navigation.NewBroadcaster(kafkaClient, log)
		hub.Start(ctx, kafkaClient)
	} else {
		log.Warn().Msg("no kafka brokers configured; events are dropped and navigation is delivered locally")
	}

	// ── 6. Services ──
	userSvc := users.NewService(database.Pool, profiles)
	roleSvc := roles.NewService(sessions, profiles, nav, publisher, log)
	detailSvc := details.NewService(sessions, profiles, nav, publisher, log, cfg.Details.RequireComplete)

	// ── 7. HTTP router ──
	r := newRouter(log, userSvc, roleSvc, detailSvc, hub)

	// ── 8. Start server ──
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.Server.Port).Msg("onboarding-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── 9. Graceful shutdown ──
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("shutting down...")
		shutCtx, shutCancel := context.WithTimeout(context.WithoutCancel(gCtx), cfg.Server.ShutdownTimeout)
		defer shutCancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

func newRouter(log zerolog.Logger, userSvc *users.Service, roleSvc *roles.Service, detailSvc *details.Service, hub *live.Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logger.Middleware(log))
	r.Use(chimw.Recoverer)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"onboarding-service"}`))
	})

	// Onboarded users land here; anyone without a role is sent back to the start.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if c := jwt.GetClaims(r.Context()); c == nil || c.Role == "" {
			http.Redirect(w, r, navigation.Path(navigation.ScreenRoleSelect), http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"onboarded"}`))
	})

	r.Mount("/users", users.NewHandler(userSvc).Routes())
	r.Mount("/onboarding/role", roles.NewHandler(roleSvc).Routes())
	r.Mount("/onboarding/details", details.NewHandler(detailSvc).Routes())
	r.Mount("/ws", hub.Routes())

	return r
}
