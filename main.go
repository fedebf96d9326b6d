package main

import (
	"log"

	"github.com/Tresorkaseka/Flashnotify/cmd"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
)

// Version information (can be set via ldflags during build)
var version = "dev"

func main() {
	settings, err := conf.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	settings.Version = version

	logging.Init()
	logging.SetLevel(logging.ParseLevel(settings.Log.Level))

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}
