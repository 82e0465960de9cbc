package main

import (
	"context"
	"log"

	"github.com/mkarpenko/keywarden/internal/watchdog"
	"github.com/mkarpenko/keywarden/internal/watchdog/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := watchdog.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
