// Command enlace is the terminal client for the phishing-detection backend:
// it submits URLs for analysis, browses the analysis history, and exports
// PDF reports with embedded charts.
//
// Usage:
//
//	enlace login -user alice -password secret
//	enlace analyze -url example.com/login
//	enlace report [-id N | -link N] [-page N] [-delete N]
//	enlace export [-id N | -history] [-out dir]
//	enlace serve [-addr :8080]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoralesv/enlace/internal/app"
	"github.com/jmoralesv/enlace/internal/cli"
	"github.com/jmoralesv/enlace/internal/config"
	"github.com/jmoralesv/enlace/internal/demoserver"
	"github.com/jmoralesv/enlace/internal/dialog"
	"github.com/jmoralesv/enlace/internal/logging"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "enlace:", err)
		os.Exit(2)
	}

	cfg := config.Load()
	level := logging.ParseLevel(cfg.LogLevel)
	if args.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewStdoutLogger("enlace", level)

	if args.Command == cli.CmdServe {
		runServe(args, logger)
		return
	}

	application, err := app.NewApplication(cfg, logger, os.Stdout, os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "enlace:", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background(), args); err != nil {
		os.Exit(1)
	}
}

func runServe(args *cli.Args, logger logging.Logger) {
	cfg := demoserver.DefaultConfig()
	cfg.ListenAddr = args.Addr

	srv, err := demoserver.NewServer(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "enlace serve:", err)
		os.Exit(1)
	}
	defer srv.Close()

	dialog.Banner()
	fmt.Printf("Demo backend listening on %s (db: %s)\n", cfg.ListenAddr, cfg.DBPath)
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		fmt.Fprintln(os.Stderr, "enlace serve:", err)
		os.Exit(1)
	}
}
