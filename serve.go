package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"peopleconnect/internal/attachments"
	"peopleconnect/internal/auth"
	"peopleconnect/internal/browser"
	"peopleconnect/internal/cache"
	"peopleconnect/internal/config"
	"peopleconnect/internal/export"
	"peopleconnect/internal/health"
	"peopleconnect/internal/i18n"
	"peopleconnect/internal/manager"
	"peopleconnect/internal/session"
	"peopleconnect/internal/storage"
	"peopleconnect/internal/submission"
	"peopleconnect/internal/telegram"
	"peopleconnect/internal/translate"
	"peopleconnect/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const sessionSweepInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe wires every component and serves HTTP until SIGINT or SIGTERM.
func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("🚀 Starting People Connect", zap.String("port", cfg.Port), zap.Bool("restrict_all", cfg.RestrictAll))

	store, err := storage.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := attachments.New(cfg.UploadDir, logger)
	if err != nil {
		return err
	}

	readCache := cache.New(store.List, cfg.CacheTTL)
	workflow := submission.NewWorkflow(store, files, readCache, submission.Limits{
		MaxAttachments: cfg.MaxAttachments,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)

	var mgr *manager.Manager
	if cfg.PurgeAttachmentsOnDelete {
		mgr = manager.New(store, readCache, files, logger)
	} else {
		mgr = manager.New(store, readCache, nil, logger)
	}

	docs := &export.Documents{Title: cfg.AppTitle, Credit: cfg.FooterCredit, FontPath: cfg.PDFFontPath}
	if cfg.PDFEngine == config.PDFEngineChrome {
		printer := browser.NewPrinter(logger, browser.DefaultPrintTimeout)
		defer printer.Close()
		docs.Printer = printer
	}

	if bot := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode, logger); bot != nil {
		bot.SetMessageStore(store)
		bot.SetCardRenderer(docs)
		workflow.SetNotifier(bot)
		mgr.SetNotifier(bot)
		if cfg.TelegramActions {
			go bot.HandleUpdates(ctx, mgr)
		}
		logger.Info("📱 Telegram notifications enabled", zap.Bool("actions", cfg.TelegramActions))
	}

	bundle, err := i18n.Load()
	if err != nil {
		return err
	}

	sessions := session.NewStore(session.Options{
		Secret:      cfg.SessionSecret,
		TTL:         cfg.SessionTTL,
		DefaultLang: i18n.DefaultLang,
		Departments: cfg.Departments,
	}, logger)
	go sessions.RunSweeper(ctx, sessionSweepInterval)

	deps := web.Deps{
		Reader:    readCache,
		Workflow:  workflow,
		Manager:   mgr,
		Documents: docs,
		Files:     files,
		Gate: auth.NewGate(auth.Settings{
			Username:          cfg.AuthUsername,
			Password:          cfg.AuthPassword,
			DeptPasswords:     cfg.DeptPasswords,
			RestrictAll:       cfg.RestrictAll,
			AttemptsPerMinute: cfg.LoginAttemptsPerMinute,
		}, logger),
		Sessions: sessions,
		Bundle:   bundle,
		Health:   health.NewMonitor(store),
	}

	translator, err := translate.NewTranslator(ctx, cfg.TranslateEnabled, cfg.GoogleCredentialsFile, logger)
	if err != nil {
		return err
	}
	if translator != nil {
		defer translator.Close()
		deps.Translator = translator
	}

	server := web.NewServer(deps, web.Options{
		Title:              cfg.AppTitle,
		Credit:             cfg.FooterCredit,
		DefaultDepartments: cfg.Departments,
		MaxAttachments:     cfg.MaxAttachments,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 Listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("🛑 Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("✅ Stopped cleanly")
	return nil
}
