package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ordaro/shipping/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipping",
	Short:   "Ordaro Shipping - DHL DE label issuance service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Issue a shipping label for one shipment",
	RunE:  runLabel,
}

var testCredentialsCmd = &cobra.Command{
	Use:   "test-credentials",
	Short: "Verify the configured carrier credentials",
	RunE:  runTestCredentials,
}

var labelShipmentID string

func init() {
	labelCmd.Flags().StringVar(&labelShipmentID, "shipment", "", "shipment ID to label")
	labelCmd.MarkFlagRequired("shipment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(testCredentialsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	app.logger.Info("Starting Ordaro Shipping",
		zap.Int("port", app.cfg.Port),
		zap.String("version", app.cfg.Version),
	)

	srv := server.New(server.Config{Port: app.cfg.Port}, app.registry, app.service, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runLabel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	outcome, err := app.service.IssueLabel(ctx, labelShipmentID)
	if outcome != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(outcome)
	}
	return err
}

func runTestCredentials(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := initApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	var failed bool
	for name, err := range app.registry.TestAllCredentials(ctx) {
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			continue
		}
		fmt.Printf("%s: ok\n", name)
	}
	if failed {
		return fmt.Errorf("credential check failed")
	}
	return nil
}
