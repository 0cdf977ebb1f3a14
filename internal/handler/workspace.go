package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/payload"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/notify"
	"github.com/raids-lab/teamspace/pkg/permit"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewWorkspaceMgr)
}

const invitationTTL = 7 * 24 * time.Hour

type WorkspaceMgr struct {
	name     string
	db       *gorm.DB
	resolver *permit.Resolver
	outbox   *notify.Outbox
}

func NewWorkspaceMgr(conf *RegisterConfig) Manager {
	return &WorkspaceMgr{
		name:     "workspaces",
		db:       conf.DB,
		resolver: conf.Resolver,
		outbox:   conf.Outbox,
	}
}

func (mgr *WorkspaceMgr) GetName() string { return mgr.name }

func (mgr *WorkspaceMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *WorkspaceMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListForUser)
	g.POST("", mgr.Create)
	g.GET("/:wid", mgr.Get)
	g.PUT("/:wid", mgr.Update)
	g.DELETE("/:wid", mgr.Delete)

	g.GET("/:wid/members", mgr.ListMembers)
	g.PUT("/:wid/members/:uid", mgr.UpdateMemberRole)
	g.DELETE("/:wid/members/:uid", mgr.RemoveMember)

	g.GET("/:wid/invitations", mgr.ListInvitations)
	g.POST("/:wid/invitations", mgr.Invite)
}

func (mgr *WorkspaceMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	WorkspaceIDReq struct {
		WorkspaceID uint `uri:"wid" binding:"required"`
	}
	WorkspaceMemberReq struct {
		WorkspaceID uint `uri:"wid" binding:"required"`
		UserID      uint `uri:"uid" binding:"required"`
	}

	WorkspaceCreateReq struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	WorkspaceUpdateReq struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	WorkspaceResp struct {
		ID          uint       `json:"id"`
		Name        string     `json:"name"`
		Description *string    `json:"description,omitempty"`
		OwnerID     uint       `json:"ownerId"`
		Role        model.Role `json:"role"`
	}

	MemberResp struct {
		User payload.UserSummary `json:"user"`
		Role model.Role          `json:"role"`
	}
)

// relationOr404 resolves the workspace relation and writes the 404 for a
// missing workspace. A nil workspace return means the response is already
// written.
func (mgr *WorkspaceMgr) relationOr404(c *gin.Context, workspaceID uint) (permit.Relation, *model.Workspace) {
	token := util.GetToken(c)
	rel, ws, err := mgr.resolver.WorkspaceRelation(c, token.UserID, workspaceID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Workspace not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return permit.RelNone, nil
	}
	return rel, ws
}

// ListForUser godoc
// @Summary List the workspaces the current user belongs to
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]WorkspaceResp] "workspaces with the user's role"
// @Router /v1/workspaces [get]
func (mgr *WorkspaceMgr) ListForUser(c *gin.Context) {
	token := util.GetToken(c)

	var memberships []model.WorkspaceMember
	if err := mgr.db.WithContext(c).
		Where("user_id = ?", token.UserID).
		Find(&memberships).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	roleByWorkspace := lo.SliceToMap(memberships, func(m model.WorkspaceMember) (uint, model.Role) {
		return m.WorkspaceID, m.Role
	})

	var workspaces []model.Workspace
	if err := mgr.db.WithContext(c).
		Where("id IN ? OR owner_id = ?", lo.Keys(roleByWorkspace), token.UserID).
		Order("id DESC").
		Find(&workspaces).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	resp := lo.Map(workspaces, func(ws model.Workspace, _ int) WorkspaceResp {
		role := roleByWorkspace[ws.ID]
		if ws.OwnerID == token.UserID {
			role = model.RoleOwner
		}
		return WorkspaceResp{
			ID: ws.ID, Name: ws.Name, Description: ws.Description,
			OwnerID: ws.OwnerID, Role: role,
		}
	})
	resputil.Success(c, resp)
}

// Create godoc
// @Summary Create a workspace
// @Description The creating user becomes the owner with an explicit owner member row
// @Tags Workspace
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body WorkspaceCreateReq true "workspace parameters"
// @Success 200 {object} resputil.Response[WorkspaceResp] "created workspace"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Router /v1/workspaces [post]
func (mgr *WorkspaceMgr) Create(c *gin.Context) {
	token := util.GetToken(c)

	var req WorkspaceCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	ws := model.Workspace{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     token.UserID,
	}
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		member := model.WorkspaceMember{
			WorkspaceID: ws.ID,
			UserID:      token.UserID,
			Role:        model.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, WorkspaceResp{
		ID: ws.ID, Name: ws.Name, Description: ws.Description,
		OwnerID: ws.OwnerID, Role: model.RoleOwner,
	})
}

// Get godoc
// @Summary Get one workspace
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[WorkspaceResp] "workspace"
// @Failure 404 {object} resputil.Response[any] "workspace not found"
// @Router /v1/workspaces/{wid} [get]
func (mgr *WorkspaceMgr) Get(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionViewWorkspace) {
		// No relation at all: report not-found, not forbidden.
		resputil.NotFoundError(c, "Workspace not found")
		return
	}
	resputil.Success(c, WorkspaceResp{
		ID: ws.ID, Name: ws.Name, Description: ws.Description,
		OwnerID: ws.OwnerID, Role: roleOf(rel),
	})
}

func roleOf(rel permit.Relation) model.Role {
	switch rel {
	case permit.RelOwner:
		return model.RoleOwner
	case permit.RelAdmin:
		return model.RoleAdmin
	default:
		return model.RoleMember
	}
}

// Update godoc
// @Summary Update workspace name or description
// @Tags Workspace
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "workspace updated"
// @Failure 403 {object} resputil.Response[any] "requires admin"
// @Router /v1/workspaces/{wid} [put]
func (mgr *WorkspaceMgr) Update(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req WorkspaceUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionEditWorkspace) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) == 0 {
		resputil.SuccessWithMessage(c, "nothing to update", "")
		return
	}
	if err := mgr.db.WithContext(c).Model(ws).Updates(updates).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// Delete godoc
// @Summary Delete a workspace
// @Description Deleting cascades to projects, tasks and memberships
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "workspace deleted"
// @Failure 403 {object} resputil.Response[any] "requires owner"
// @Router /v1/workspaces/{wid} [delete]
func (mgr *WorkspaceMgr) Delete(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionDeleteWorkspace) {
		resputil.ForbiddenError(c, "Only the owner can delete a workspace")
		return
	}

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		var projectIDs []uint
		if err := tx.Model(&model.Project{}).
			Where("workspace_id = ?", ws.ID).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			var taskIDs []uint
			if err := tx.Model(&model.Task{}).
				Where("project_id IN ?", projectIDs).
				Pluck("id", &taskIDs).Error; err != nil {
				return err
			}
			if len(taskIDs) > 0 {
				for _, m := range []any{&model.TaskAssignee{}, &model.Comment{}, &model.Attachment{}} {
					if err := tx.Where("task_id IN ?", taskIDs).Delete(m).Error; err != nil {
						return err
					}
				}
				if err := tx.Where("id IN ?", taskIDs).Delete(&model.Task{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("project_id IN ?", projectIDs).Delete(&model.ProjectMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", projectIDs).Delete(&model.Project{}).Error; err != nil {
				return err
			}
		}
		for _, m := range []any{&model.WorkspaceMember{}, &model.WorkspaceInvitation{}, &model.Channel{}} {
			if err := tx.Where("workspace_id = ?", ws.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(ws).Error
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// ListMembers godoc
// @Summary List workspace members
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]MemberResp] "members with roles"
// @Router /v1/workspaces/{wid}/members [get]
func (mgr *WorkspaceMgr) ListMembers(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionViewWorkspace) {
		resputil.NotFoundError(c, "Workspace not found")
		return
	}

	var members []model.WorkspaceMember
	if err := mgr.db.WithContext(c).
		Preload("User").
		Where("workspace_id = ?", ws.ID).
		Order("id").
		Find(&members).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp := lo.Map(members, func(m model.WorkspaceMember, _ int) MemberResp {
		return MemberResp{
			User: payload.UserSummary{
				ID:       m.User.ID,
				Name:     m.User.Name,
				Nickname: m.User.Attributes.Data().Nickname,
			},
			Role: m.Role,
		}
	})
	resputil.Success(c, resp)
}

type UpdateMemberRoleReq struct {
	Role model.Role `json:"role" binding:"required"`
}

// UpdateMemberRole godoc
// @Summary Change a member's workspace role
// @Description The owner role is bound to workspace ownership and cannot be granted here
// @Tags Workspace
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "role updated"
// @Failure 403 {object} resputil.Response[any] "requires admin"
// @Router /v1/workspaces/{wid}/members/{uid} [put]
func (mgr *WorkspaceMgr) UpdateMemberRole(c *gin.Context) {
	var uriReq WorkspaceMemberReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateMemberRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		resputil.BadRequestError(c, "Role must be member or admin")
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionManageWorkspaceMembers) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}
	if uriReq.UserID == ws.OwnerID {
		resputil.BadRequestError(c, "The owner's role cannot be changed")
		return
	}

	res := mgr.db.WithContext(c).Model(&model.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", ws.ID, uriReq.UserID).
		Update("role", req.Role)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.NotFoundError(c, "Member not found")
		return
	}
	resputil.Success(c, "")
}

// RemoveMember godoc
// @Summary Remove a member from the workspace
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "member removed"
// @Failure 403 {object} resputil.Response[any] "requires admin"
// @Router /v1/workspaces/{wid}/members/{uid} [delete]
func (mgr *WorkspaceMgr) RemoveMember(c *gin.Context) {
	var uriReq WorkspaceMemberReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	// Members may leave on their own; removing anyone else needs admin.
	if uriReq.UserID != token.UserID && !permit.Allowed(rel, permit.ActionManageWorkspaceMembers) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}
	if uriReq.UserID == ws.OwnerID {
		resputil.BadRequestError(c, "The owner cannot be removed")
		return
	}

	res := mgr.db.WithContext(c).
		Where("workspace_id = ? AND user_id = ?", ws.ID, uriReq.UserID).
		Delete(&model.WorkspaceMember{})
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.NotFoundError(c, "Member not found")
		return
	}
	resputil.Success(c, "")
}

type (
	InviteReq struct {
		Email string     `json:"email" binding:"required,email"`
		Role  model.Role `json:"role" binding:"required"`
	}

	InvitationResp struct {
		ID        uint                   `json:"id"`
		Email     string                 `json:"email"`
		Role      model.Role             `json:"role"`
		Status    model.InvitationStatus `json:"status"`
		ExpiresAt time.Time              `json:"expiresAt"`
	}
)

// ListInvitations godoc
// @Summary List invitations of a workspace
// @Tags Workspace
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]InvitationResp] "invitations"
// @Router /v1/workspaces/{wid}/invitations [get]
func (mgr *WorkspaceMgr) ListInvitations(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionInviteMember) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}

	var invitations []model.WorkspaceInvitation
	if err := mgr.db.WithContext(c).
		Where("workspace_id = ?", ws.ID).
		Order("id DESC").
		Find(&invitations).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	now := time.Now()
	resp := lo.Map(invitations, func(inv model.WorkspaceInvitation, _ int) InvitationResp {
		status := inv.Status
		if inv.Expired(now) {
			status = model.InvitationExpired
		}
		return InvitationResp{
			ID: inv.ID, Email: inv.Email, Role: inv.Role,
			Status: status, ExpiresAt: inv.ExpiresAt,
		}
	})
	resputil.Success(c, resp)
}

// Invite godoc
// @Summary Invite an email address into the workspace
// @Description Unique per (workspace, email); the invite email goes out through the outbox
// @Tags Workspace
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body InviteReq true "invite parameters"
// @Success 200 {object} resputil.Response[InvitationResp] "created invitation"
// @Failure 400 {object} resputil.Response[any] "request parameter error or duplicate invite"
// @Failure 403 {object} resputil.Response[any] "requires admin"
// @Router /v1/workspaces/{wid}/invitations [post]
func (mgr *WorkspaceMgr) Invite(c *gin.Context) {
	var uriReq WorkspaceIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req InviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		resputil.BadRequestError(c, "Role must be member or admin")
		return
	}
	token := util.GetToken(c)
	rel, ws := mgr.relationOr404(c, uriReq.WorkspaceID)
	if ws == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionInviteMember) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}

	var existing model.WorkspaceInvitation
	err := mgr.db.WithContext(c).
		Where("workspace_id = ? AND email = ?", ws.ID, req.Email).
		First(&existing).Error
	if err == nil && !existing.Expired(time.Now()) && existing.Status == model.InvitationPending {
		resputil.BadRequestError(c, "This email already has a pending invitation")
		return
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	invitation := model.WorkspaceInvitation{
		WorkspaceID: ws.ID,
		Email:       req.Email,
		Role:        req.Role,
		Status:      model.InvitationPending,
		Token:       uuid.New().String(),
		InviterID:   token.UserID,
		ExpiresAt:   time.Now().Add(invitationTTL),
	}
	txErr := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if existing.ID != 0 {
			// Stale or terminal invitation for this email: replace it.
			if err := tx.Unscoped().Delete(&existing).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&invitation).Error; err != nil {
			return err
		}
		return mgr.outbox.WorkspaceInvite(tx, req.Email, ws, invitation.Token)
	})
	if txErr != nil {
		resputil.Error(c, txErr.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, InvitationResp{
		ID: invitation.ID, Email: invitation.Email, Role: invitation.Role,
		Status: invitation.Status, ExpiresAt: invitation.ExpiresAt,
	})
}
