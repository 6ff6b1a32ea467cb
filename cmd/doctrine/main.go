package main

import (
	"context"
	"os"

	"github.com/markdave123-py/doctrinekb/internal/cli"
	"github.com/markdave123-py/doctrinekb/internal/config"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		if config.IsConfigurationError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
