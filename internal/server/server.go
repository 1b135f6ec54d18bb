package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/merchly/catalogmedia/internal/database"
	"github.com/merchly/catalogmedia/internal/events"
	"github.com/merchly/catalogmedia/internal/modules/modulemanager"

	// Import all modules to trigger their registration
	_ "github.com/merchly/catalogmedia/internal/modules/catalogmodule"
	_ "github.com/merchly/catalogmedia/internal/modules/mediamodule"
)

// Global instances
var (
	systemEventBus    events.EventBus
	moduleInitialized bool
)

// SetupRouter configures and returns the main router
func SetupRouter() *gin.Engine {
	r := gin.Default()

	// CORS middleware for development
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize event bus system
	if err := initializeEventBus(); err != nil {
		log.Printf("Failed to initialize event bus: %v", err)
	}

	// Initialize module system
	if err := initializeModules(); err != nil {
		log.Printf("Failed to initialize modules: %v", err)
	}

	if systemEventBus != nil {
		systemEventBus.PublishAsync(events.NewSystemEvent(events.EventSystemStarted, "catalogmedia", "server started"))
	}

	registerSystemRoutes(r)
	modulemanager.RegisterRoutes(r)

	return r
}

// initializeModules sets up the module system and loads all modules
func initializeModules() error {
	if moduleInitialized {
		return nil
	}

	db := database.GetDB()

	// Register the event bus globally so modules can access it
	events.SetGlobalEventBus(systemEventBus)

	if err := modulemanager.LoadAll(db); err != nil {
		return err
	}

	moduleInitialized = true
	logModuleStatus()

	return nil
}

// registerSystemRoutes mounts the health and event-history endpoints
func registerSystemRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status":  "ok",
			"modules": len(modulemanager.ListModules()),
		}
		if systemEventBus != nil {
			if err := systemEventBus.Health(); err != nil {
				status["status"] = "degraded"
				status["event_bus"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, status)
	})

	r.GET("/api/events", func(c *gin.Context) {
		if systemEventBus == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		filter := events.EventFilter{}
		if target := c.Query("target"); target != "" {
			filter.Targets = []string{target}
		}
		if eventType := c.Query("type"); eventType != "" {
			filter.Types = []events.EventType{events.EventType(eventType)}
		}

		eventList, total, err := systemEventBus.GetEvents(filter, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": eventList, "total": total})
	})

	r.GET("/api/events/stats", func(c *gin.Context) {
		if systemEventBus == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus unavailable"})
			return
		}
		c.JSON(http.StatusOK, systemEventBus.GetStats())
	})
}

// logModuleStatus logs the loaded modules
func logModuleStatus() {
	modules := modulemanager.ListModules()

	log.Printf("✅ Module system initialized with %d modules", len(modules))

	log.Printf("┌────────────────────────────────────────────────────────────────┐")
	log.Printf("│ %-20s │ %-25s │ %-8s │", "MODULE NAME", "MODULE ID", "CORE")
	log.Printf("├────────────────────────────────────────────────────────────────┤")

	for _, module := range modules {
		coreStatus := "No"
		if module.Core() {
			coreStatus = "Yes"
		}
		log.Printf("│ %-20s │ %-25s │ %-8s │",
			truncate(module.Name(), 20),
			truncate(module.ID(), 25),
			coreStatus)
	}

	log.Printf("└────────────────────────────────────────────────────────────────┘")
}

// truncate shortens a string to the given length, adding ... if needed
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// initializeEventBus sets up the system-wide event bus
func initializeEventBus() error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized before event bus")
	}
	if err := db.AutoMigrate(&events.SystemEvent{}); err != nil {
		return fmt.Errorf("failed to migrate event storage: %w", err)
	}

	config := events.DefaultEventBusConfig()
	storage := events.NewDatabaseEventStorage(db)

	systemEventBus = events.NewEventBus(config, &eventLogger{}, storage)

	if err := systemEventBus.Start(context.Background()); err != nil {
		log.Printf("Failed to start event bus: %v", err)
		return err
	}

	log.Println("✅ System event bus initialized and started")
	return nil
}

// eventLogger implements the events.EventLogger interface
type eventLogger struct{}

func (l *eventLogger) Info(msg string, args ...interface{}) { log.Printf("[EVENT-INFO] "+msg, args...) }
func (l *eventLogger) Error(msg string, args ...interface{}) {
	log.Printf("[EVENT-ERROR] "+msg, args...)
}
func (l *eventLogger) Warn(msg string, args ...interface{}) { log.Printf("[EVENT-WARN] "+msg, args...) }
func (l *eventLogger) Debug(msg string, args ...interface{}) {
	log.Printf("[EVENT-DEBUG] "+msg, args...)
}

// GetEventBus returns the system event bus instance
func GetEventBus() events.EventBus {
	return systemEventBus
}

// ShutdownEventBus gracefully shuts down the event bus
func ShutdownEventBus() error {
	if systemEventBus == nil {
		return nil
	}
	log.Println("INFO: Shutting down event bus...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return systemEventBus.Stop(ctx)
}
