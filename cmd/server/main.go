package main

import (
	"github.com/pinewilt/kgcurate/backend/internal/server"
	"github.com/pinewilt/kgcurate/backend/internal/util"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/logger/console"

	_ "github.com/lib/pq"
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
