package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/customuser/internal/manage"
	"github.com/dmitrijs2005/customuser/internal/server"
	"github.com/dmitrijs2005/customuser/internal/server/config"
)

func main() {

	args := manage.CommandArgs(os.Args[1:])
	if len(args) == 0 {
		manage.Usage(os.Stderr)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.Manage(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
