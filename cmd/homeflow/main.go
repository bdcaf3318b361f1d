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

	"homeflow/api"
	"homeflow/auth"
	"homeflow/config"
	"homeflow/conversation"
	"homeflow/db"
	"homeflow/deal"
	"homeflow/migrate"
	"homeflow/notification"
	"homeflow/property"
	"homeflow/social"
	"homeflow/tour"
	"homeflow/verification"
	"homeflow/workers"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "homeflow",
		Short: "Rental workflow service",
	}

	rootCmd.AddCommand(serveCmd(), migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("bootstrap database pool: %w", err)
			}
			defer pool.Close()

			notifier := notification.NewCenter(pool)
			authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret).WithTokenTTL(cfg.TokenTTL)
			conversations := conversation.NewService(pool, conversation.NewRepository(pool))
			deals := deal.NewService(pool, nil, notifier)
			tours := tour.NewService(pool, nil, notifier, conversations)
			verifications := verification.NewService(pool, nil, notifier)
			socials := social.NewService(pool, nil, notifier)

			router := api.NewRouter(api.Services{
				Verifier:      authService,
				Auth:          authService,
				Properties:    property.NewRepository(pool),
				Conversations: conversations,
				Deals:         deals,
				Tours:         tours,
				Verification:  verifications,
				Social:        socials,
				Notifications: notifier,
			})

			dispatcher := workers.NewOutboxDispatcher(pool, nil, workers.LogPublisher{}, cfg.OutboxBatch)
			reminder := workers.NewTourReminder(pool, nil, notifier)
			scheduler := workers.NewScheduler(dispatcher, reminder)
			if err := scheduler.Start(ctx, cfg.OutboxCron, cfg.ReminderCron); err != nil {
				return err
			}
			defer scheduler.Stop()

			srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Printf("http shutdown: %v", err)
				}
			}()

			log.Printf("listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("bootstrap database pool: %w", err)
			}
			defer pool.Close()

			if err := migrate.Apply(ctx, pool, migrate.CoreDir()); err != nil {
				return err
			}
			log.Println("migrations applied")
			return nil
		},
	}
}
