package main

import (
	"fmt"
	"os"

	dig_container "github.com/8ddieHu0314/Course-Mapper-sub000/apps/api/di/dig"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	logsvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, "ADMIN", conf)

	// start CLI
	cli := commandLine{
		container: dig_container.New(func() *core.Config { return conf }),
		out:       os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
