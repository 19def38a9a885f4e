package main

import (
	"os"

	"github.com/tkingovr/xapictl/cmd/xapictl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
