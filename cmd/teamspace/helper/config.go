package helper

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/raids-lab/teamspace/dao/query"
	"github.com/raids-lab/teamspace/internal/handler"
	"github.com/raids-lab/teamspace/pkg/assign"
	"github.com/raids-lab/teamspace/pkg/classify"
	"github.com/raids-lab/teamspace/pkg/config"
	"github.com/raids-lab/teamspace/pkg/cronjob"
	"github.com/raids-lab/teamspace/pkg/notify"
	"github.com/raids-lab/teamspace/pkg/permit"
)

// ConfigInitializer wires the configuration and the shared dependencies every
// handler manager receives.
type ConfigInitializer struct {
	backendConfig *config.Config
}

func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment overrides the bind address from .debug.env when
// running in debug mode.
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	be := os.Getenv("TEAMSPACE_BE_PORT")
	if be == "" {
		panic("TEAMSPACE_BE_PORT is not set")
	}
	ci.backendConfig.ServerAddr = ":" + be

	return nil
}

// InitializeRegisterConfig opens the database and builds the dependency graph:
// resolver, assignment coordinator, outbox, websocket hub and the email
// classifier client. The cron manager owning the background workers is
// returned alongside.
func (ci *ConfigInitializer) InitializeRegisterConfig() (*handler.RegisterConfig, *cronjob.Manager) {
	db := query.GetDB()

	resolver := permit.NewResolver(db)
	outbox := notify.NewOutbox()
	hub := notify.NewHub()
	mailer := notify.NewMailer()
	drainer := notify.NewDrainer(db, hub, mailer)

	registerConfig := &handler.RegisterConfig{
		DB:          db,
		Resolver:    resolver,
		Coordinator: assign.NewCoordinator(db, resolver, outbox),
		Outbox:      outbox,
		Hub:         hub,
		Classifier:  classify.NewClient(),
	}
	return registerConfig, cronjob.NewManager(db, drainer)
}
