// Command server runs the ShiftDesk identity, PIN and presence services:
// the REST API on the HTTP address and the presence service on the gRPC
// address.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/shiftdesk/internal/server"
	"github.com/dmitrijs2005/shiftdesk/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("server init: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}

}
