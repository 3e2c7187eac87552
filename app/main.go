package main

import (
	"os"

	"github.com/lysyi3m/paleo-digest/app/cfg"
	"github.com/lysyi3m/paleo-digest/app/cli"
)

func main() {
	app := cli.NewApp(cfg.NewLoader(), os.Stdout)

	// go-flags has already printed the error.
	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
