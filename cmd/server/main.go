package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/Avenger11764/duo-learning/internal/config"
	"github.com/Avenger11764/duo-learning/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("DUOLEARN_CONFIG")
	if cfgPath == "" {
		cfgPath = "duolearn_config.yml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	handler, err := server.NewHandler(context.Background(), server.Options{
		Config: cfg,
		Logger: log.Default(),
	})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	log.Printf("listening on http://localhost%s (store=%s)", cfg.Server.Addr, cfg.Store.Backend)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, handler))
}
