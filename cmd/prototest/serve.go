package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brandtiboy/prototype-test/internal/config"
	"github.com/brandtiboy/prototype-test/internal/server"
	"github.com/brandtiboy/prototype-test/internal/sink"
	"github.com/brandtiboy/prototype-test/internal/store"
)

var (
	configPath string
	listenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the prototype and run the session controller",
	Long:  `Serves the prototype directory with the testing overlay and the session API.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "prototest.yaml", "Path to the study configuration")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}

	// Local results store: every submission is kept on this machine
	// regardless of which network sinks are configured.
	st, err := store.New(cfg.ResultsDB)
	if err != nil {
		return err
	}
	defer st.Close()

	sinks := []sink.Sink{st.Sink()}
	if cfg.DatabaseConfigured() {
		sinks = append(sinks, sink.NewDatabaseSink(cfg.Database.URL, cfg.Database.AnonKey))
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, sink.NewWebhookSink(cfg.WebhookURL))
	}
	if cfg.DownloadEnabled() {
		sinks = append(sinks, sink.NewFileSink(cfg.ResultsDir))
	}
	dispatcher := sink.NewDispatcher(sinks, nil)

	service := server.NewService(cfg, dispatcher)
	service.Start()
	defer service.Stop()

	srv := server.NewServer(service, cfg.Listen, cfg.PrototypeDir)

	log.Printf("study %q: %d tasks, %d sinks", cfg.Project, len(cfg.Tasks), len(sinks))
	log.Printf("open http://%s/ and add <script src=\"/pt/overlay.js\"></script> to the prototype", cfg.Listen)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down...", sig)
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Let in-flight sink deliveries finish; each is bounded by its own timeout.
	dispatcher.Wait()
	return nil
}
