// Command demoserver starts the standalone demo backend with a seeded demo
// account, for developing the client without the real detection service.
//
// Usage: go run ./cmd/demoserver [addr]
// Default addr: :8080
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jmoralesv/enlace/internal/demoserver"
	"github.com/jmoralesv/enlace/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()
	if len(os.Args) > 1 {
		cfg.ListenAddr = os.Args[1]
	}

	logger := logging.NewStdoutLogger("demoserver", logging.LevelDebug)
	srv, err := demoserver.NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("starting demo server: %v", err)
	}
	defer srv.Close()

	// Seed a throwaway account so the client can log in immediately.
	if _, err := srv.Store().SeedUser(context.Background(), "demo", "demo", "ROLE_ADMIN"); err != nil && !errors.Is(err, demoserver.ErrUserExists) {
		log.Fatalf("seeding demo user: %v", err)
	}

	fmt.Println("===========================================")
	fmt.Println("   Enlace Demo Backend")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Printf("Listening on %s (db: %s)\n", cfg.ListenAddr, cfg.DBPath)
	fmt.Println("Seeded account: demo / demo")
	fmt.Println()
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
