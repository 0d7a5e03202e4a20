package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/BionicLimanov/sapusugi/internal/config"
	"github.com/BionicLimanov/sapusugi/internal/generate"
	"github.com/BionicLimanov/sapusugi/internal/kernel"
	"github.com/BionicLimanov/sapusugi/internal/logger"
	"github.com/BionicLimanov/sapusugi/internal/notebook"
	"github.com/BionicLimanov/sapusugi/internal/server"
	"github.com/BionicLimanov/sapusugi/internal/server/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open database
	logger.Infof("Opening database: %s", cfg.DatabasePath)
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	// Notebook storage
	notebooks, err := notebook.NewDirStore(cfg.NotebookDir)
	if err != nil {
		logger.Errorf("Failed to open notebook dir: %v", err)
		os.Exit(1)
	}
	logger.Infof("Serving notebooks from: %s", notebooks.Root())

	// Execution gateway is optional; without it the run endpoints report
	// execution as unavailable.
	var exec kernel.Executor
	if cfg.KernelURL != "" {
		logger.Infof("Using execution gateway: %s", cfg.KernelURL)
		exec = kernel.NewGatewayClient(cfg.KernelURL)
	} else {
		logger.Warnf("KERNEL_URL not set - notebook execution disabled")
	}

	generator := generate.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel)

	srv := server.New(cfg, st, notebooks, exec, generator)
	router := srv.Router()

	logger.Infof("Starting server on %s", cfg.Addr)
	if err := router.Run(cfg.Addr); err != nil {
		logger.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}
