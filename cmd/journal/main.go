package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/textjournal/backend/internal/cli"
	"github.com/textjournal/backend/internal/client"
	"github.com/textjournal/backend/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baseURL := os.Getenv("JOURNAL_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:5001"
	}
	tokenPath := os.Getenv("JOURNAL_SESSION_FILE")
	if tokenPath == "" {
		p, err := client.DefaultTokenPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot locate config dir:", err)
			return 1
		}
		tokenPath = p
	}

	level := os.Getenv("JOURNAL_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	log := logging.New(os.Stderr, level, true)

	api := client.NewHTTPClient(baseURL, nil)
	auth := client.NewOrchestrator(client.Deps{
		Gateway:  api,
		Verifier: api,
		Failures: api,
		Profile:  api,
		Tokens:   client.NewFileTokenStore(tokenPath),
		Log:      log,
	})
	defer auth.Close()

	if err := auth.Start(ctx); err != nil {
		log.Warn(ctx, "could not restore session", "error", err)
	}

	app := cli.NewApp(auth, api, os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
