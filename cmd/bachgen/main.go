package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/Conceptual-Machines/bachgen/internal/cli"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
