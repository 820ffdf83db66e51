package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sandeepkv93/product-catalog-demo/internal/di"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional env file; variables already set take precedence")
	flag.Parse()
	// A missing env file is fine; the process environment alone is a valid config.
	_ = godotenv.Load(*envFile)

	a, err := di.InitializeApp()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		a.Logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	a.Logger.Info("server stopped")
}
