package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/client/cli"
	"github.com/dmitrijs2005/accountkeeper/internal/client/client"
	"github.com/dmitrijs2005/accountkeeper/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, args := config.LoadConfig()

	c, err := client.NewAccountKeeperClient(cfg.ServerEndpointAddr, cfg.Timeout, cfg.AccessToken, cfg.RefreshToken)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app := cli.NewApp(c, os.Stdin, os.Stdout)
	code := app.Run(ctx, args)
	c.Close()
	os.Exit(code)

}
