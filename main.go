package main

import (
	"fmt"

	"github.com/SwiftFiat/SwiftFiat-Cards/api"
	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/SwiftFiat/SwiftFiat-Cards/utils"
)

var envPath string = "."

func main() {

	config, err := utils.LoadConfig(envPath)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}

	logger := logging.NewLogger(config)
	logger.WithField("config", config.Redact()).Debug("configuration loaded")

	server, err := api.NewServer(config, logger)
	if err != nil {
		panic(fmt.Sprintf("Could not start server: %v", err))
	}
	defer server.Close()

	if err := server.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("server stopped: %v", err))
	}
}
