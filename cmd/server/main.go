// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/botlink-app/botlink/internal/config"
	"github.com/botlink-app/botlink/internal/server"
)

func main() {
	cmd := &cli.Command{
		Name:   "botlink",
		Usage:  "Link web profiles to messaging-bot accounts",
		Flags:  config.Flags(),
		Action: server.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
