package catalogmodule

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/merchly/catalogmedia/internal/config"
	"github.com/merchly/catalogmedia/internal/logger"
	"github.com/merchly/catalogmedia/internal/modules/modulemanager"
)

const (
	// ModuleID is the unique identifier for the catalog module
	ModuleID = "system.catalog"

	// ModuleName is the display name for the catalog module
	ModuleName = "Catalog"
)

// Register registers the catalog module with the module system
func Register() {
	catalogModule := &Module{}
	modulemanager.Register(catalogModule)
}

func init() {
	Register()
}

// Module wires the three admin submission screens (banner, product,
// bundle) to the media pipeline and the downstream create-API.
type Module struct {
	client *Client
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
	return false
}

// Migrate runs the module's database migrations. The catalog module
// keeps no state of its own; records live in the downstream API.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init initializes the catalog module
func (m *Module) Init() error {
	cfg := config.Get()
	m.client = NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout)
	logger.Info("✅ Catalog module initialized (api: %s)", cfg.Catalog.BaseURL)
	return nil
}

// RegisterRoutes registers the module's HTTP routes
func (m *Module) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/catalog")
	{
		api.POST("/banners", m.createBannerHandler)
		api.POST("/products", m.createProductHandler)
		api.POST("/bundles", m.createBundleHandler)
	}
}
