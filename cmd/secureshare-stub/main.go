package main

import (
	"log"

	_ "github.com/joho/godotenv/autoload"

	"secureshare/internal/config"
	"secureshare/internal/stubserver"
)

// Runs the in-memory document store used for local development. Nothing
// survives a restart; seed an account with register/login through the CLI.
func main() {
	cfg := config.Load()

	srv := stubserver.New(cfg.Stub.SigningKey)

	log.Printf("stub document store listening on %s", cfg.Stub.ListenAddr)
	if err := srv.Listen(cfg.Stub.ListenAddr); err != nil {
		log.Fatalf("failed to start stub server: %v", err)
	}
}
