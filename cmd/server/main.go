package main

import (
	"context"
	"errors"
	"log"
	"os"
	"slices"

	"github.com/dmitrijs2005/workoutlog/internal/server"
	"github.com/dmitrijs2005/workoutlog/internal/server/config"
)

// Usage:
//
//	workoutlog-server [flags]                 serve
//	workoutlog-server [flags] approve <email> approve a registered account
func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if i := slices.Index(args, "approve"); i >= 0 {
		if i+1 >= len(args) {
			return errors.New("usage: approve <email>")
		}
		return app.Approve(ctx, args[i+1])
	}

	return app.Run(ctx)
}
