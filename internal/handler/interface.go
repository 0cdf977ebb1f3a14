package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/pkg/assign"
	"github.com/raids-lab/teamspace/pkg/classify"
	"github.com/raids-lab/teamspace/pkg/notify"
	"github.com/raids-lab/teamspace/pkg/permit"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the shared dependencies handed to every manager.
type RegisterConfig struct {
	DB          *gorm.DB
	Resolver    *permit.Resolver
	Coordinator *assign.Coordinator
	Outbox      *notify.Outbox
	Hub         *notify.Hub
	Classifier  *classify.Client
}

type RegisterFunc func(conf *RegisterConfig) Manager

// Registers collects the manager constructors; each handler file appends its
// own in init().
var Registers []RegisterFunc
