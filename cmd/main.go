package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/evanherd/spotsync/internal/services"
	"github.com/evanherd/spotsync/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	var catalog services.Catalog
	if token, err := shared.LoadToken(config.Credentials.Spotify.TokenPath); err == nil {
		httpClient := services.NewAuthenticatedClient(context.Background(), config, token)
		catalog = services.NewSpotifyCatalog(httpClient)
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Logger:  logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "spotsync",
		Usage:    "Mirror your Spotify library to a local database and query it",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
