package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ds-job-scraper/cmd/jobscraper/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}
