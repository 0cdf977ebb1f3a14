package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/payload"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/logutils"
	"github.com/raids-lab/teamspace/pkg/notify"
	"github.com/raids-lab/teamspace/pkg/permit"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMessageMgr)
}

// MessageMgr serves workspace chat channels. A new message is pushed to the
// other workspace members over the websocket hub right away; their
// notification feed entry goes through the outbox like every other
// notification.
type MessageMgr struct {
	name     string
	db       *gorm.DB
	resolver *permit.Resolver
	hub      *notify.Hub
	outbox   *notify.Outbox
}

func NewMessageMgr(conf *RegisterConfig) Manager {
	return &MessageMgr{
		name:     "channels",
		db:       conf.DB,
		resolver: conf.Resolver,
		hub:      conf.Hub,
		outbox:   conf.Outbox,
	}
}

func (mgr *MessageMgr) GetName() string { return mgr.name }

func (mgr *MessageMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *MessageMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListChannels)
	g.POST("", mgr.CreateChannel)
	g.DELETE("/:cid", mgr.DeleteChannel)

	g.GET("/:cid/messages", mgr.ListMessages)
	g.POST("/:cid/messages", mgr.PostMessage)
}

func (mgr *MessageMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ChannelIDReq struct {
		ChannelID uint `uri:"cid" binding:"required"`
	}

	ChannelCreateReq struct {
		WorkspaceID uint   `json:"workspaceId" binding:"required"`
		Name        string `json:"name" binding:"required,max=64"`
	}

	ChannelResp struct {
		ID          uint   `json:"id"`
		WorkspaceID uint   `json:"workspaceId"`
		Name        string `json:"name"`
		CreatedBy   uint   `json:"createdBy"`
	}

	MessageCreateReq struct {
		Body string `json:"body" binding:"required"`
	}

	MessageResp struct {
		ID        uint                `json:"id"`
		ChannelID uint                `json:"channelId"`
		Author    payload.UserSummary `json:"author"`
		Body      string              `json:"body"`
		CreatedAt time.Time           `json:"createdAt"`
	}

	MessageListReq struct {
		Limit  int   `form:"limit"`
		Before *uint `form:"before"` // message id cursor for backward pagination
	}
)

// channelOr404 loads the channel and verifies workspace visibility. Missing
// channel and invisible workspace both answer 404.
func (mgr *MessageMgr) channelOr404(c *gin.Context, channelID uint) (*model.Channel, permit.Relation) {
	token := util.GetToken(c)

	var channel model.Channel
	err := mgr.db.WithContext(c).First(&channel, channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.NotFoundError(c, "Channel not found")
		return nil, permit.RelNone
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil, permit.RelNone
	}

	rel, _, err := mgr.resolver.WorkspaceRelation(c, token.UserID, channel.WorkspaceID)
	if err != nil && !errors.Is(err, permit.ErrNotFound) {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil, permit.RelNone
	}
	if !permit.Allowed(rel, permit.ActionViewWorkspace) {
		resputil.NotFoundError(c, "Channel not found")
		return nil, permit.RelNone
	}
	return &channel, rel
}

// ListChannels godoc
// @Summary List channels in a workspace
// @Tags Channel
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ChannelResp] "channels"
// @Failure 404 {object} resputil.Response[any] "workspace not found"
// @Router /v1/channels [get]
func (mgr *MessageMgr) ListChannels(c *gin.Context) {
	token := util.GetToken(c)

	var filter struct {
		WorkspaceID uint `form:"workspaceId" binding:"required"`
	}
	if err := c.ShouldBindQuery(&filter); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	rel, _, err := mgr.resolver.WorkspaceRelation(c, token.UserID, filter.WorkspaceID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Workspace not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !permit.Allowed(rel, permit.ActionViewWorkspace) {
		resputil.NotFoundError(c, "Workspace not found")
		return
	}

	var channels []model.Channel
	if err := mgr.db.WithContext(c).
		Where("workspace_id = ?", filter.WorkspaceID).
		Order("name").
		Find(&channels).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(channels, func(ch model.Channel, _ int) ChannelResp {
		return ChannelResp{ID: ch.ID, WorkspaceID: ch.WorkspaceID, Name: ch.Name, CreatedBy: ch.CreatedBy}
	}))
}

// CreateChannel godoc
// @Summary Create a channel in a workspace
// @Description Channel names are unique per workspace
// @Tags Channel
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ChannelCreateReq true "channel parameters"
// @Success 200 {object} resputil.Response[ChannelResp] "created channel"
// @Failure 400 {object} resputil.Response[any] "duplicate channel name"
// @Router /v1/channels [post]
func (mgr *MessageMgr) CreateChannel(c *gin.Context) {
	token := util.GetToken(c)

	var req ChannelCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	rel, _, err := mgr.resolver.WorkspaceRelation(c, token.UserID, req.WorkspaceID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Workspace not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !permit.Allowed(rel, permit.ActionViewWorkspace) {
		resputil.NotFoundError(c, "Workspace not found")
		return
	}

	var count int64
	if err := mgr.db.WithContext(c).Model(&model.Channel{}).
		Where("workspace_id = ? AND name = ?", req.WorkspaceID, req.Name).
		Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if count > 0 {
		resputil.BadRequestError(c, "A channel with this name already exists")
		return
	}

	channel := model.Channel{
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		CreatedBy:   token.UserID,
	}
	if err := mgr.db.WithContext(c).Create(&channel).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, ChannelResp{
		ID: channel.ID, WorkspaceID: channel.WorkspaceID,
		Name: channel.Name, CreatedBy: channel.CreatedBy,
	})
}

// DeleteChannel godoc
// @Summary Delete a channel and its messages
// @Description Allowed for the channel creator and workspace admins
// @Tags Channel
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "channel deleted"
// @Failure 403 {object} resputil.Response[any] "requires creator or workspace admin"
// @Router /v1/channels/{cid} [delete]
func (mgr *MessageMgr) DeleteChannel(c *gin.Context) {
	var uriReq ChannelIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	channel, rel := mgr.channelOr404(c, uriReq.ChannelID)
	if channel == nil {
		return
	}
	if channel.CreatedBy != token.UserID && !permit.Allowed(rel, permit.ActionEditWorkspace) {
		resputil.ForbiddenError(c, "Requires the channel creator or a workspace admin")
		return
	}

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channel.ID).Delete(&model.ChannelMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(channel).Error
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// ListMessages godoc
// @Summary List messages in a channel, newest first
// @Description ?before= pages backward from a message id
// @Tags Channel
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]MessageResp] "messages"
// @Failure 404 {object} resputil.Response[any] "channel not found"
// @Router /v1/channels/{cid}/messages [get]
func (mgr *MessageMgr) ListMessages(c *gin.Context) {
	var uriReq ChannelIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req MessageListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	channel, _ := mgr.channelOr404(c, uriReq.ChannelID)
	if channel == nil {
		return
	}

	q := mgr.db.WithContext(c).Where("channel_id = ?", channel.ID)
	if req.Before != nil {
		q = q.Where("id < ?", *req.Before)
	}
	var messages []model.ChannelMessage
	if err := q.Preload("Author").
		Order("id DESC").
		Limit(sanitizeLimit(req.Limit)).
		Find(&messages).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(messages, func(m model.ChannelMessage, _ int) MessageResp {
		return toMessageResp(channel.ID, &m)
	}))
}

// PostMessage godoc
// @Summary Post a message to a channel
// @Description The message is pushed to other workspace members over the websocket
// @Tags Channel
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body MessageCreateReq true "message body"
// @Success 200 {object} resputil.Response[MessageResp] "created message"
// @Failure 404 {object} resputil.Response[any] "channel not found"
// @Router /v1/channels/{cid}/messages [post]
func (mgr *MessageMgr) PostMessage(c *gin.Context) {
	var uriReq ChannelIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req MessageCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	channel, _ := mgr.channelOr404(c, uriReq.ChannelID)
	if channel == nil {
		return
	}

	var memberIDs []uint
	if err := mgr.db.WithContext(c).Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id <> ?", channel.WorkspaceID, token.UserID).
		Pluck("user_id", &memberIDs).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	message := model.ChannelMessage{
		ChannelID: channel.ID,
		AuthorID:  token.UserID,
		Body:      req.Body,
	}
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		for _, userID := range memberIDs {
			if err := mgr.outbox.ChannelMessage(tx, userID, channel, token.UserID); err != nil {
				logutils.Log.WithFields(logutils.Fields{
					"channel": channel.ID, "user": userID,
				}).Warnf("append channel notification failed: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := MessageResp{
		ID:        message.ID,
		ChannelID: channel.ID,
		Author:    payload.UserSummary{ID: token.UserID, Name: token.Username},
		Body:      message.Body,
		CreatedAt: message.CreatedAt,
	}
	mgr.hub.EmitToUsers(memberIDs, notify.Event{Kind: "channel_message", Payload: resp})

	resputil.Success(c, resp)
}

func toMessageResp(channelID uint, m *model.ChannelMessage) MessageResp {
	return MessageResp{
		ID:        m.ID,
		ChannelID: channelID,
		Author: payload.UserSummary{
			ID:       m.Author.ID,
			Name:     m.Author.Name,
			Nickname: m.Author.Attributes.Data().Nickname,
		},
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
