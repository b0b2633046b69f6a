// Command server runs the gophauth HTTP and gRPC endpoints.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	buildinfo.PrintBuildData(os.Stdout)

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "gophauth: %v\n", err)
		return 1
	}

	// Run owns SIGINT/SIGTERM handling and returns after shutdown.
	app.Run(ctx)
	return 0
}
