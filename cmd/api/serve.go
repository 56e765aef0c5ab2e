package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "github.com/fkhayef/rentguard/docs"
	"github.com/fkhayef/rentguard/internal/admin"
	"github.com/fkhayef/rentguard/internal/config"
	"github.com/fkhayef/rentguard/internal/database"
	"github.com/fkhayef/rentguard/internal/entitlement"
	"github.com/fkhayef/rentguard/internal/gateway"
	"github.com/fkhayef/rentguard/internal/group"
	"github.com/fkhayef/rentguard/internal/member"
	"github.com/fkhayef/rentguard/internal/notification"
	"github.com/fkhayef/rentguard/internal/store"
	"github.com/fkhayef/rentguard/internal/sweeper"
	mw "github.com/fkhayef/rentguard/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st := store.Open(cfg.DataFile, logger)
	defer func() {
		if err := st.Flush(); err != nil {
			logger.Error("final snapshot write failed", "path", st.Path(), "error", err)
		}
	}()

	// Admin feature
	adminService := admin.NewService(admin.NewRepository(st), logger)
	if _, err := adminService.EnsureSeed(ctx, cfg.SeedAdminID); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	adminHandler := admin.NewHandler(adminService, logger)

	// Platform gateway
	var gw gateway.Gateway = gateway.Disabled{}
	if cfg.BotToken != "" {
		telegram, err := gateway.NewTelegramClient(gateway.TelegramOptions{
			BaseURL:   cfg.PlatformAPIURL,
			Token:     cfg.BotToken,
			Timeout:   cfg.GatewayTimeout,
			RateLimit: cfg.GatewayRateLimit,
			Burst:     cfg.GatewayBurst,
		}, logger)
		if err != nil {
			return fmt.Errorf("platform gateway: %w", err)
		}
		gw = telegram
	} else {
		logger.Warn("BOT_TOKEN is not set; overdue subjects will not be removed and admins will not be notified")
	}

	// Notification inbox
	var notificationHandler *notification.Handler
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		notificationRepo := notification.NewRepository(db)
		if err := notificationRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		notificationService := notification.NewService(notificationRepo)
		notificationHandler = notification.NewHandler(notificationService, logger)
		gw = notification.NewInbox(gw, notificationService, logger)
		logger.Info("notification inbox enabled")
	}

	// Group feature
	groupService := group.NewService(group.NewRepository(st), logger)
	groupHandler := group.NewHandler(groupService, logger)

	// Entitlement feature
	var entitlementOpts []entitlement.Option
	if cfg.BotToken != "" {
		entitlementOpts = append(entitlementOpts, entitlement.WithMemberLookup(gw, cfg.GatewayTimeout))
	}
	entitlementService := entitlement.NewService(entitlement.NewRepository(st), logger, entitlementOpts...)
	entitlementHandler := entitlement.NewHandler(entitlementService, logger)

	// Membership feature
	memberService := member.NewService(member.NewRepository(st), gw, adminService, logger,
		member.WithNotifyTimeout(cfg.GatewayTimeout))
	memberHandler := member.NewHandler(memberService, logger)

	// Expiry sweeper
	sw := sweeper.New(entitlementService, sweeper.StoreDirectory{Store: st}, gw, logger,
		sweeper.WithTimeout(cfg.GatewayTimeout))
	sweepHandler := sweeper.NewHandler(sw)
	scheduler := sweeper.NewScheduler(sw, cfg.SweepStartDelay, cfg.SweepInterval, logger)

	router := newRouter(cfg, handlers{
		admins:       adminService,
		group:        groupHandler,
		entitlement:  entitlementHandler,
		member:       memberHandler,
		admin:        adminHandler,
		sweep:        sweepHandler,
		notification: notificationHandler,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	scheduler.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Port, "data_file", cfg.DataFile)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// handlers collects the feature handlers mounted by newRouter. A nil
// notification handler leaves the inbox routes unmounted.
type handlers struct {
	admins       mw.AdminAuthority
	group        *group.Handler
	entitlement  *entitlement.Handler
	member       *member.Handler
	admin        *admin.Handler
	sweep        *sweeper.Handler
	notification *notification.Handler
}

func newRouter(cfg *config.Config, h handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Use(mw.WebhookAuth(cfg.WebhookSecret))
			r.Post("/group", h.group.HandleEvent)
			r.Post("/membership", h.member.HandleEvent)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin(h.admins, cfg.BootstrapFirstCaller, logger))

			groupRouter := h.group.Routes()
			groupRouter.Mount("/{id}/entitlements", h.entitlement.GroupRoutes())
			r.Mount("/groups", groupRouter)
			r.Mount("/entitlements", h.entitlement.Routes())
			r.Mount("/admins", h.admin.Routes())
			r.Mount("/sweeps", h.sweep.Routes())
			if h.notification != nil {
				r.Mount("/notifications", h.notification.Routes())
			}
		})
	})

	return r
}
