package main

import (
	"github.com/exposome-labs/causeway/backend/internal/server"
	"github.com/exposome-labs/causeway/backend/internal/util"
	"github.com/exposome-labs/causeway/backend/pkg/logger"
	"github.com/exposome-labs/causeway/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
