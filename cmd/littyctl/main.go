package main

import (
	"os"

	"github.com/ignatzorin/littypicky-backend/internal/app"
	"github.com/ignatzorin/littypicky-backend/internal/config"
)

func main() {
	root := newRootCmd(&env{
		load: config.Load,
		open: app.OpenStores,
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
