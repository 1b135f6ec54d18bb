package mediamodule

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/merchly/catalogmedia/internal/database"
	"github.com/merchly/catalogmedia/internal/events"
	"github.com/merchly/catalogmedia/internal/logger"
	"github.com/merchly/catalogmedia/internal/modules/modulemanager"
)

const (
	// ModuleID is the unique identifier for the media pipeline module
	ModuleID = "system.media.pipeline"

	// ModuleName is the display name for the media pipeline module
	ModuleName = "Media Pipeline"
)

// Register registers the media pipeline module with the module system
func Register() {
	mediaModule := &Module{}
	modulemanager.Register(mediaModule)
}

func init() {
	Register()
}

// Module is the media ingestion pipeline module: transcoding, batch
// sessions, sequential uploads, audit trail.
type Module struct {
	manager *Manager
}

// ID returns the module ID
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module name
func (m *Module) Name() string {
	return ModuleName
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return true
}

// Migrate runs the module's database migrations
func (m *Module) Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&database.UploadRecord{}, &database.BatchRecord{}); err != nil {
		return fmt.Errorf("failed to migrate media pipeline tables: %w", err)
	}
	return nil
}

// Init initializes the media pipeline module
func (m *Module) Init() error {
	logger.Info("🔄 Initializing media pipeline module")

	eventBus := events.GetGlobalEventBus()
	m.manager = NewManager(database.GetDB(), eventBus)

	logger.Info("✅ Media pipeline module initialized")
	return nil
}

// Manager returns the pipeline manager. Nil before Init.
func (m *Module) Manager() *Manager {
	return m.manager
}

// RegisterRoutes registers the module's HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/media")
	{
		api.POST("/sessions", m.openSessionHandler)
		api.GET("/sessions", m.listSessionsHandler)
		api.GET("/sessions/:id", m.getSessionHandler)
		api.POST("/sessions/:id/files", m.ingestFilesHandler)
		api.DELETE("/sessions/:id/tasks/:taskId", m.removeTaskHandler)
		api.GET("/sessions/:id/previews/:handleId", m.renderPreviewHandler)
		api.POST("/sessions/:id/upload", m.uploadBatchHandler)
		api.POST("/sessions/:id/restart", m.restartSessionHandler)
		api.DELETE("/sessions/:id", m.discardSessionHandler)
		api.GET("/sessions/:id/progress", m.progressStreamHandler)
		api.GET("/uploads/orphaned", m.orphanedUploadsHandler)
		api.GET("/records", m.recordsHandler)
	}
}

// GetManager returns the media pipeline manager from the global module
// registry. Used by sibling modules that submit batches.
func GetManager() (*Manager, error) {
	module, ok := modulemanager.GetModule(ModuleID)
	if !ok {
		return nil, fmt.Errorf("media pipeline module not registered")
	}
	mediaModule, ok := module.(*Module)
	if !ok {
		return nil, fmt.Errorf("unexpected module type for %s", ModuleID)
	}
	if mediaModule.manager == nil {
		return nil, fmt.Errorf("media pipeline module not initialized")
	}
	return mediaModule.manager, nil
}
