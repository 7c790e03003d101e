// Package main provides the entry point for the gene ranking shootout.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gene-ranking-shootout/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Interrupt received, stopping after the current case...")
		cancel()
	}()

	if err := cli.NewCLI().Run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
