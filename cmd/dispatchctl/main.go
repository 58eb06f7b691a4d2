package main

import (
	"os"

	"github.com/G-Research/engine-dispatch/cmd/dispatchctl/cmd"
	"github.com/G-Research/engine-dispatch/internal/common"
)

func main() {
	common.ConfigureCommandLineLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
