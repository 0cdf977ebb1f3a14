package internal

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/teamspace/internal/handler"
	"github.com/raids-lab/teamspace/internal/middleware"
	"github.com/raids-lab/teamspace/pkg/metrics"
)

const apiPrefix = "/v1"

// Register builds the gin engine: health and metrics endpoints, CORS for the
// local frontend in debug mode, and the public/protected/admin route groups
// each manager hangs its routes on.
func Register(conf *handler.RegisterConfig) *gin.Engine {
	engine := gin.Default()
	engine.Use(metrics.Middleware())

	// Kubernetes health check
	engine.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})
	engine.GET("/metrics", metrics.Handler())

	// Enable CORS for http://localhost:XXXX in debug mode
	if gin.Mode() == gin.DebugMode {
		fe := os.Getenv("TEAMSPACE_FE_PORT")
		if fe != "" {
			url := "http://localhost:" + fe
			corsConf := cors.DefaultConfig()
			corsConf.AllowOrigins = []string{url}
			corsConf.AllowHeaders = append(corsConf.AllowHeaders, "Authorization", "X-Requested-With")
			engine.Use(cors.New(corsConf))
		}
	}

	publicRouter := engine.Group(apiPrefix)

	protectedRouter := engine.Group(apiPrefix)
	protectedRouter.Use(middleware.AuthProtected())

	adminRouter := engine.Group(apiPrefix + "/admin")
	adminRouter.Use(middleware.AuthProtected(), middleware.AuthAdmin())

	for _, mgr := range registerManagers(conf) {
		name := mgr.GetName()
		mgr.RegisterPublic(publicRouter.Group(name))
		mgr.RegisterProtected(protectedRouter.Group(name))
		mgr.RegisterAdmin(adminRouter.Group(name))
	}

	return engine
}
