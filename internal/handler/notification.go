package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/middleware"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewNotificationMgr)
}

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationMgr struct {
	name string
	db   *gorm.DB
}

func NewNotificationMgr(conf *RegisterConfig) Manager {
	return &NotificationMgr{
		name: "notifications",
		db:   conf.DB,
	}
}

func (mgr *NotificationMgr) GetName() string { return mgr.name }

func (mgr *NotificationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *NotificationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.GET("/unread-count", mgr.UnreadCount)
	// Mutations are accepted on POST and PATCH; PATCH additionally demands
	// the header that blocks simple cross-site form submissions.
	g.POST("", mgr.Mutate)
	g.PATCH("", middleware.RequireCSRFHeader(), mgr.Mutate)
}

func (mgr *NotificationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

const (
	NotificationActionMarkAsRead    = "markAsRead"
	NotificationActionMarkAllAsRead = "markAllAsRead"
	NotificationActionDelete        = "delete"
)

type (
	NotificationListReq struct {
		Limit      int  `form:"limit"`
		UnreadOnly bool `form:"unreadOnly"`
	}

	NotificationResp struct {
		ID        uint                   `json:"id"`
		Type      model.NotificationType `json:"type"`
		Title     string                 `json:"title"`
		Message   string                 `json:"message"`
		Read      bool                   `json:"read"`
		Metadata  datatypes.JSON         `json:"metadata,omitempty"`
		CreatedAt time.Time              `json:"createdAt"`
	}

	NotificationMutateReq struct {
		Action          string `json:"action" binding:"required"`
		NotificationIDs []uint `json:"notificationIds"`
	}

	NotificationMutateResp struct {
		Count int64 `json:"count"`
	}

	UnreadCountResp struct {
		Count int64 `json:"count"`
	}
)

// sanitizeLimit clamps the requested page size into [1, max], substituting the
// default for zero and negative values.
func sanitizeLimit(requested int) int {
	if requested <= 0 {
		return defaultNotificationLimit
	}
	if requested > maxNotificationLimit {
		return maxNotificationLimit
	}
	return requested
}

// List godoc
// @Summary List the current user's notifications, newest first
// @Description limit defaults to 20 and caps at 100; ?unreadOnly=true filters read ones out
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]NotificationResp] "notifications"
// @Router /v1/notifications [get]
func (mgr *NotificationMgr) List(c *gin.Context) {
	token := util.GetToken(c)

	var req NotificationListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	q := mgr.db.WithContext(c).Where("user_id = ?", token.UserID)
	if req.UnreadOnly {
		q = q.Where("read = ?", false)
	}
	var notifications []model.Notification
	if err := q.Order("id DESC").
		Limit(sanitizeLimit(req.Limit)).
		Find(&notifications).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(notifications, func(n model.Notification, _ int) NotificationResp {
		return NotificationResp{
			ID: n.ID, Type: n.Type, Title: n.Title, Message: n.Message,
			Read: n.Read, Metadata: n.Metadata, CreatedAt: n.CreatedAt,
		}
	}))
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags Notification
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UnreadCountResp] "unread count"
// @Router /v1/notifications/unread-count [get]
func (mgr *NotificationMgr) UnreadCount(c *gin.Context) {
	token := util.GetToken(c)
	var count int64
	if err := mgr.db.WithContext(c).Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", token.UserID, false).
		Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, UnreadCountResp{Count: count})
}

// Mutate godoc
// @Summary Mark or delete notifications
// @Description Actions: markAsRead (ids required), markAllAsRead, delete (ids required). Scoped to the current user; marking zero unread rows is still a success.
// @Tags Notification
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body NotificationMutateReq true "action and target ids"
// @Success 200 {object} resputil.Response[NotificationMutateResp] "number of rows touched"
// @Failure 400 {object} resputil.Response[any] "unknown action or missing ids"
// @Router /v1/notifications [patch]
func (mgr *NotificationMgr) Mutate(c *gin.Context) {
	token := util.GetToken(c)

	var req NotificationMutateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	scoped := mgr.db.WithContext(c).Where("user_id = ?", token.UserID)
	var res *gorm.DB
	switch req.Action {
	case NotificationActionMarkAsRead:
		if len(req.NotificationIDs) == 0 {
			resputil.BadRequestError(c, "notificationIds is required for markAsRead")
			return
		}
		res = scoped.Model(&model.Notification{}).
			Where("id IN ?", req.NotificationIDs).
			Update("read", true)
	case NotificationActionMarkAllAsRead:
		res = scoped.Model(&model.Notification{}).
			Where("read = ?", false).
			Update("read", true)
	case NotificationActionDelete:
		if len(req.NotificationIDs) == 0 {
			resputil.BadRequestError(c, "notificationIds is required for delete")
			return
		}
		res = scoped.Where("id IN ?", req.NotificationIDs).
			Delete(&model.Notification{})
	default:
		resputil.BadRequestError(c, "Unknown action")
		return
	}
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	// Zero affected rows is an idempotent success, not an error.
	resputil.Success(c, NotificationMutateResp{Count: res.RowsAffected})
}
