package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"runepause/internal/app"
	"runepause/internal/core/timekeeper"
	"runepause/internal/history"
	"runepause/internal/journal"
	"runepause/internal/platform"
	"runepause/internal/preferences"
	"runepause/internal/server"
	"runepause/internal/storage"
	"runepause/internal/webhook"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the timer in the system tray",
		Long: `Run the timer and serve the control API on the single-instance address.
With --headless no window or tray icon is created and the process runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstance(cmd.Context(), viper.GetBool("headless"))
		},
	}
	cmd.Flags().Bool("headless", false, "run without tray and overlay")
	_ = viper.BindPFlag("headless", cmd.Flags().Lookup("headless"))
	return cmd
}

func acquireInstance() (*platform.InstanceGuard, error) {
	if addr := viper.GetString("addr"); addr != "" {
		return platform.AcquireSingleInstanceAt(addr)
	}
	return platform.AcquireSingleInstance(appName)
}

func runInstance(ctx context.Context, headless bool) error {
	guard, err := acquireInstance()
	if err != nil {
		return fmt.Errorf("single instance: %w", err)
	}
	defer func() {
		_ = guard.Release()
	}()

	dir, err := dataDir()
	if err != nil {
		return err
	}
	store := storage.NewStoreAt(dir)

	var lister server.HistoryLister
	var phases *history.Store
	db, err := history.Open(dir)
	if err != nil {
		log.Printf("history: open database: %v", err)
	} else {
		defer db.Close()
		phases = &history.Store{DB: db}
		lister = phases
	}

	controller := app.New(app.Options{
		Store:         store,
		Idle:          platform.NewIdleProvider(),
		Collaborators: collaborators(phases),
	})

	handler, err := server.New(server.Config{Controller: controller, History: lister, Version: version})
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(guard.Listener()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: serve: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("runepause: control API on http://%s%s", guard.Address(), server.DefaultBasePath)

	if headless {
		return runHeadless(ctx, controller)
	}
	return runDesktop(controller)
}

func runHeadless(ctx context.Context, controller *app.Controller) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller.Listen(app.ListenerFunc(logEvent))
	if err := controller.Start(controller.Settings()); err != nil {
		return err
	}
	<-ctx.Done()
	if err := controller.Stop(); err != nil && !errors.Is(err, app.ErrNotRunning) {
		return err
	}
	return nil
}

func logEvent(event timekeeper.Event) {
	if event.Type == timekeeper.EventTick {
		return
	}
	log.Print(renderEvent(event, false))
}

// collaborators builds the per-run listeners that depend on settings.
func collaborators(phases *history.Store) func(preferences.Settings) []app.Listener {
	return func(settings preferences.Settings) []app.Listener {
		var listeners []app.Listener
		if phases != nil {
			listeners = append(listeners, history.NewRecorder(*phases))
		}
		if settings.ObsidianVault != "" {
			listeners = append(listeners, journal.New(settings.ObsidianVault))
		}
		if settings.WebhookURL != "" {
			listeners = append(listeners, webhook.New(settings.WebhookURL))
		}
		return listeners
	}
}
