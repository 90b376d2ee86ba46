package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/api"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/api/handlers"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/configuration"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/services"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/storage"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/virustotal"
	"github.com/VarunKoduru/CyberThreat-Guardian/internal/workflow"
)

func main() {
	cfg := configuration.Load()

	if cfg.VirusTotal.APIKey == "" {
		log.Fatal("VIRUS_TOTAL_API_KEY is required")
	}

	var store storage.Store
	pg, err := storage.ConnectPostgres(cfg.Database.ConnectionString())
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL: %v", err)
		log.Println("Falling back to in-memory storage; scans will not survive a restart")
		store = storage.NewMemoryStore()
	} else {
		store = pg
	}

	var events *services.EventBus
	if cfg.NATSURL != "" {
		events, err = services.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Printf("Warning: failed to connect to NATS: %v", err)
		}
	}

	var mailer *services.Mailer
	if cfg.SMTP.Username != "" && cfg.SMTP.Password != "" {
		mailer = services.NewMailer(
			cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Username, cfg.SMTP.Password,
			cfg.SMTP.From, cfg.AppURL,
		)
	} else {
		log.Println("Warning: EMAIL_USER or EMAIL_PASS not set, password reset emails disabled")
	}

	vt := virustotal.New(cfg.VirusTotal.BaseURL, cfg.VirusTotal.APIKey)
	resolver := workflow.NewResolver(store, vt, events)

	setupGracefulShutdown(events)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	api.RegisterRoutes(r, handlers.New(store, resolver, mailer, cfg))

	log.Println("Server starting on :" + cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupGracefulShutdown(events *services.EventBus) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		events.Close()
		os.Exit(0)
	}()
}
