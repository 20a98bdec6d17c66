package main

import (
	"go.uber.org/zap"

	approuters "github.com/rahulm682/Chat-App/internal/app_routers"
	"github.com/rahulm682/Chat-App/internal/configuration"
)

func main() {
	container, err := configuration.BuildContainer()
	if err != nil {
		// The container owns the real logger; it never got built.
		logger, _ := zap.NewProduction()
		logger.Fatal("failed to build container", zap.Error(err))
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	// Setup routers
	approuters.StartServer(container)
}
