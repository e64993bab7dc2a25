package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/anmicius0/unit-batch-station/internal/config"
	"github.com/anmicius0/unit-batch-station/internal/server"
	"github.com/anmicius0/unit-batch-station/internal/service"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API for scanner clients",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(gin.ReleaseMode)
	jobStore := config.NewJobStore()

	sessions := service.NewSessionStore(service.NewFactory(a.deps, a.rules), a.cfg.SessionTTL)
	sessions.OnRemove(func(id string) {
		if n := jobStore.DeleteSessionJobs(id); n > 0 {
			utils.Logger.Debug("Dropped import jobs of closed session",
				zap.String(utils.FieldSessionID, id),
				zap.Int("jobs", n))
		}
	})
	sessions.Start(ctx, 0)
	defer sessions.Close()

	imports := server.NewImportManager(jobStore, a.deps.Inventory, a.rules, a.cfg.ImportConcurrency)
	defer imports.Close()

	router := server.NewRouter(a.cfg, sessions, jobStore, imports)
	return startServer(router, a.cfg)
}

// startServer binds the HTTP server and handles graceful shutdown signals.
func startServer(router http.Handler, appConfig *config.Config) error {
	portStr := strconv.Itoa(appConfig.Port)
	addr := fmt.Sprintf("%s:%s", appConfig.APIHost, portStr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		utils.Logger.Info("Shutdown signal received", zap.String(utils.FieldSignal, sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			utils.Logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	utils.Logger.Info("Server starting",
		zap.String(utils.FieldHost, appConfig.APIHost),
		zap.String(utils.FieldPort, portStr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Error("Server failed to start", zap.Error(err))
		return err
	}

	utils.Logger.Info("Server stopped")
	return nil
}
