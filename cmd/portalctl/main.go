package main

import (
	"os"

	"github.com/ucouncil/portal/backend/go-services/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
