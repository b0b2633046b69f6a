// Command cli is the interactive gophauth client.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/client/cli"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app, err := cli.NewApp(ctx, config.LoadConfig())
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "gophauth: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
	stop()
}
