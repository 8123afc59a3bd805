package main

import (
	"context"
	"log"
	"time"

	"pulse-tracker-report/internal/api"
	"pulse-tracker-report/internal/config"
	"pulse-tracker-report/internal/database"
	"pulse-tracker-report/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	influxClient, err := database.NewInfluxDBClient(cfg.InfluxDB)
	if err != nil {
		log.Fatalf("Failed to connect to InfluxDB: %v", err)
	}
	defer influxClient.Close()

	// MongoDB is optional: without it, report caching and weekly scheduling
	// are disabled but report generation still works.
	var mongoClient *database.MongoClient
	if cfg.MongoDB.URI != "" || cfg.MongoDB.Host != "" {
		log.Printf("Initializing MongoDB connection (Host: %s, Port: %s, Database: %s)",
			cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
		mongoClient, err = database.NewMongoClient(cfg.MongoDB)
		if err != nil {
			log.Printf("WARNING: Failed to connect to MongoDB (caching and weekly scheduling disabled): %v", err)
			mongoClient = nil
		} else {
			log.Printf("Connected to MongoDB")
			defer mongoClient.Close()
		}
	} else {
		log.Printf("MongoDB not configured, report caching disabled")
	}

	var adhocCache, weeklyCache services.ReportStore
	var optedAccounts services.SubscriptionStore
	if mongoClient != nil {
		adhocCache = mongoClient.AdhocReportCache()
		weeklyCache = mongoClient.WeeklyReportCache()
		optedAccounts = mongoClient.OptedAccounts()
	}

	dataService := services.NewDataService(influxClient)
	aiService := services.NewAIService(cfg.OpenAI)
	taskStore := services.NewInMemoryTaskStore()
	reportService := services.NewReportService(dataService, aiService, adhocCache, weeklyCache, taskStore)

	pdfService := services.NewPDFService()
	emailService := services.NewEmailService(cfg.Email, pdfService)
	scheduler := services.NewSchedulerService(reportService, emailService, optedAccounts, time.Now)

	if cfg.Email.APIKey != "" {
		scheduler.Start()
		defer scheduler.Stop()
		scheduler.LoadAndScheduleOptedAccounts(context.Background())
	} else {
		log.Printf("SendGrid API key not configured, weekly email reports disabled")
	}

	agentTools := services.NewAgentTools(influxClient, reportService)

	handlers := api.NewHandlers(reportService, scheduler, agentTools)
	router := api.SetupRoutes(handlers, cfg.Server.APIToken)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
