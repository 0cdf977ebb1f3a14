package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/notify"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewInvitationMgr)
}

// InvitationMgr serves the invitee side of the invitation lifecycle. The
// inviter side (creating and listing invites per workspace) lives on the
// workspace manager.
type InvitationMgr struct {
	name   string
	db     *gorm.DB
	outbox *notify.Outbox
}

func NewInvitationMgr(conf *RegisterConfig) Manager {
	return &InvitationMgr{
		name:   "invitations",
		db:     conf.DB,
		outbox: conf.Outbox,
	}
}

func (mgr *InvitationMgr) GetName() string { return mgr.name }

func (mgr *InvitationMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *InvitationMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListForUser)
	g.POST("/:token/accept", mgr.Accept)
	g.POST("/:token/decline", mgr.Decline)
}

func (mgr *InvitationMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	InvitationTokenReq struct {
		Token string `uri:"token" binding:"required,uuid"`
	}

	PendingInvitationResp struct {
		Token         string     `json:"token"`
		WorkspaceID   uint       `json:"workspaceId"`
		WorkspaceName string     `json:"workspaceName"`
		Role          model.Role `json:"role"`
		InviterName   string     `json:"inviterName"`
		ExpiresAt     time.Time  `json:"expiresAt"`
	}
)

// userEmail returns the current user's profile email, which invitations are
// keyed by.
func (mgr *InvitationMgr) userEmail(c *gin.Context) (string, error) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		return "", err
	}
	email := user.Attributes.Data().Email
	if email == nil {
		return "", errors.New("user has no email on file")
	}
	return *email, nil
}

// ListForUser godoc
// @Summary List pending invitations addressed to the current user's email
// @Tags Invitation
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]PendingInvitationResp] "pending invitations"
// @Router /v1/invitations [get]
func (mgr *InvitationMgr) ListForUser(c *gin.Context) {
	email, err := mgr.userEmail(c)
	if err != nil {
		resputil.Success(c, []PendingInvitationResp{})
		return
	}

	var invitations []model.WorkspaceInvitation
	if err := mgr.db.WithContext(c).
		Preload("Workspace").
		Preload("Inviter").
		Where("email = ? AND status = ? AND expires_at > ?", email, model.InvitationPending, time.Now()).
		Order("id DESC").
		Find(&invitations).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp := lo.Map(invitations, func(inv model.WorkspaceInvitation, _ int) PendingInvitationResp {
		return PendingInvitationResp{
			Token:         inv.Token,
			WorkspaceID:   inv.WorkspaceID,
			WorkspaceName: inv.Workspace.Name,
			Role:          inv.Role,
			InviterName:   inv.Inviter.Name,
			ExpiresAt:     inv.ExpiresAt,
		}
	})
	resputil.Success(c, resp)
}

// pendingByToken loads the invitation and verifies it is addressed to the
// current user, still pending, and not expired. A nil return means the error
// response is already written.
func (mgr *InvitationMgr) pendingByToken(c *gin.Context) *model.WorkspaceInvitation {
	var uriReq InvitationTokenReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return nil
	}

	var invitation model.WorkspaceInvitation
	err := mgr.db.WithContext(c).Preload("Workspace").
		Where("token = ?", uriReq.Token).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.NotFoundError(c, "Invitation not found")
		return nil
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return nil
	}

	email, err := mgr.userEmail(c)
	if err != nil || invitation.Email != email {
		// Do not reveal other users' invitations.
		resputil.NotFoundError(c, "Invitation not found")
		return nil
	}
	if invitation.Status != model.InvitationPending {
		resputil.BadRequestError(c, "Invitation is no longer pending")
		return nil
	}
	if invitation.Expired(time.Now()) {
		if err := mgr.db.WithContext(c).Model(&invitation).
			Update("status", model.InvitationExpired).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return nil
		}
		resputil.BadRequestError(c, "Invitation has expired")
		return nil
	}
	return &invitation
}

// Accept godoc
// @Summary Accept an invitation and join the workspace
// @Description Joining is idempotent for users who are already members
// @Tags Invitation
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "joined the workspace"
// @Failure 400 {object} resputil.Response[any] "invitation expired or already resolved"
// @Failure 404 {object} resputil.Response[any] "invitation not found"
// @Router /v1/invitations/{token}/accept [post]
func (mgr *InvitationMgr) Accept(c *gin.Context) {
	invitation := mgr.pendingByToken(c)
	if invitation == nil {
		return
	}
	token := util.GetToken(c)

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		member := model.WorkspaceMember{
			WorkspaceID: invitation.WorkspaceID,
			UserID:      token.UserID,
			Role:        invitation.Role,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			return err
		}
		if err := tx.Model(invitation).Update("status", model.InvitationAccepted).Error; err != nil {
			return err
		}
		return mgr.outbox.InviteAccepted(tx, invitation.InviterID, &invitation.Workspace, token.Username)
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.SuccessWithMessage(c, "joined the workspace", "")
}

// Decline godoc
// @Summary Decline an invitation
// @Tags Invitation
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "invitation declined"
// @Failure 404 {object} resputil.Response[any] "invitation not found"
// @Router /v1/invitations/{token}/decline [post]
func (mgr *InvitationMgr) Decline(c *gin.Context) {
	invitation := mgr.pendingByToken(c)
	if invitation == nil {
		return
	}
	if err := mgr.db.WithContext(c).Model(invitation).
		Update("status", model.InvitationDeclined).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}
