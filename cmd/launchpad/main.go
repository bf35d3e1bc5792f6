// ====================================
// File: cmd/launchpad/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rovshanmuradov/launchpad/internal/app"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := app.NewRunner()
	if err := runner.Initialize("configs/launchpad.json"); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize:", err)
		os.Exit(1)
	}
	defer runner.Close()

	if err := runner.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "scenario failed:", err)
		os.Exit(1)
	}
}
