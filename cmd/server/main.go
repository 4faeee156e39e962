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
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/mmuslimabdulj/persona-chat/internal/adsession"
	"github.com/mmuslimabdulj/persona-chat/internal/auth"
	"github.com/mmuslimabdulj/persona-chat/internal/chat"
	"github.com/mmuslimabdulj/persona-chat/internal/config"
	httpHandler "github.com/mmuslimabdulj/persona-chat/internal/delivery/http"
	"github.com/mmuslimabdulj/persona-chat/internal/delivery/ws"
	"github.com/mmuslimabdulj/persona-chat/internal/generation"
	"github.com/mmuslimabdulj/persona-chat/internal/ledger"
	"github.com/mmuslimabdulj/persona-chat/internal/likes"
	"github.com/mmuslimabdulj/persona-chat/internal/logging"
	"github.com/mmuslimabdulj/persona-chat/internal/middleware"
	"github.com/mmuslimabdulj/persona-chat/internal/persona"
	"github.com/mmuslimabdulj/persona-chat/internal/storage"
	"github.com/mmuslimabdulj/persona-chat/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	db, err := storage.Open(cfg.DatabasePath, cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	defer storage.Close(db)
	for _, migrate := range []func(*gorm.DB) error{ledger.Migrate, adsession.Migrate, likes.Migrate, chat.Migrate} {
		if err := migrate(db); err != nil {
			return err
		}
	}

	catalog, err := persona.LoadCatalog(cfg.CatalogPath, cfg.GlossaryDir, log)
	if err != nil {
		return err
	}

	primary := generation.NewOpenAIClient(cfg.GeneratorBaseURL, cfg.GeneratorAPIKey, cfg.GeneratorModel, cfg.GeneratorTimeout)
	gen := &generation.Failover{Primary: primary, Log: log}
	if cfg.GeneratorAltModel != "" {
		gen.Alternate = primary.WithModel(cfg.GeneratorAltModel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := ws.NewRouter(log)
	orch := usecase.NewOrchestrator(gen, catalog, router, usecase.Timing{
		ReplyProbability: cfg.ReplyProbability,
		ReplyDelayMin:    cfg.ReplyDelayMin,
		ReplyDelayMax:    cfg.ReplyDelayMax,
		TypingPerChar:    cfg.TypingPerChar,
		TypingMax:        cfg.TypingMax,
		AgentGapMin:      cfg.AgentGapMin,
		AgentGapMax:      cfg.AgentGapMax,
		ContextWindow:    cfg.ContextWindow,
	}, log, usecase.WithContext(ctx))

	accounts := ledger.New(db, ledger.Credits{
		InitialFree:       cfg.InitialFreeCredits,
		SignupBonus:       cfg.SignupBonusCredits,
		AdMinWatchSeconds: cfg.AdMinWatchSeconds,
	}, log)
	ads := adsession.New(db, accounts, adsession.Rules{
		MinWatchSeconds: cfg.AdMinWatchSeconds,
		BonusCredits:    cfg.AdBonusCredits,
		RevenueMinCents: cfg.AdRevenueMinCents,
		RevenueMaxCents: cfg.AdRevenueMaxCents,
	}, log)
	chats := usecase.NewChatService(chat.NewMemoryStore(), chat.NewSQLStore(db), catalog, accounts, orch,
		usecase.NewGuestNamer(), usecase.Windows{Echo: cfg.EchoWindow, Rehydrate: cfg.RehydrateWindow}, log)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	if !verifier.Enabled() {
		log.Warn("JWT_SECRET not set, every request is anonymous")
	}
	if cfg.InternalToken == "" {
		log.Warn("INTERNAL_TOKEN not set, signup bonus webhook is disabled")
	}

	apiLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitAPI), cfg.RateBurstAPI)
	wsLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitWS), cfg.RateBurstWS)
	origins := middleware.NewOriginPolicy(cfg.AllowedOrigins)

	handler := httpHandler.NewHandler(httpHandler.Deps{
		Chats:          chats,
		Ledger:         accounts,
		Ads:            ads,
		Likes:          likes.New(db, log),
		Router:         router,
		Verifier:       verifier,
		Origins:        origins,
		InternalToken:  cfg.InternalToken,
		MaxMessageSize: cfg.MaxMessageSize,
		MessageRate:    rate.Limit(cfg.RateLimitWS),
		MessageBurst:   cfg.RateBurstWS,
		Log:            log,
	})
	routes := handler.Routes(middleware.RateLimitMiddleware(apiLimiter), middleware.RateLimitMiddleware(wsLimiter))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.SecurityHeaders(origins.CORS(routes)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GeneratorTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return router.Run(gctx) })
	g.Go(func() error { return apiLimiter.Run(gctx) })
	g.Go(func() error { return wsLimiter.Run(gctx) })
	g.Go(func() error {
		log.Info("persona chat listening", "addr", server.Addr, "characters", len(catalog.All()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		orch.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server exited gracefully")
	return nil
}
