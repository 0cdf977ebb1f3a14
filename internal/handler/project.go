package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/payload"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/permit"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewProjectMgr)
}

type ProjectMgr struct {
	name     string
	db       *gorm.DB
	resolver *permit.Resolver
}

func NewProjectMgr(conf *RegisterConfig) Manager {
	return &ProjectMgr{
		name:     "projects",
		db:       conf.DB,
		resolver: conf.Resolver,
	}
}

func (mgr *ProjectMgr) GetName() string { return mgr.name }

func (mgr *ProjectMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *ProjectMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListForUser)
	g.POST("", mgr.Create)
	g.GET("/:pid", mgr.Get)
	g.PUT("/:pid", mgr.Update)
	g.DELETE("/:pid", mgr.Delete)

	g.GET("/:pid/members", mgr.ListMembers)
	g.POST("/:pid/members", mgr.AddMember)
	g.DELETE("/:pid/members/:uid", mgr.RemoveMember)
}

func (mgr *ProjectMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	ProjectIDReq struct {
		ProjectID uint `uri:"pid" binding:"required"`
	}
	ProjectMemberURIReq struct {
		ProjectID uint `uri:"pid" binding:"required"`
		UserID    uint `uri:"uid" binding:"required"`
	}

	ProjectCreateReq struct {
		WorkspaceID uint    `json:"workspaceId" binding:"required"`
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	ProjectUpdateReq struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}

	ProjectResp struct {
		ID          uint    `json:"id"`
		WorkspaceID uint    `json:"workspaceId"`
		OwnerID     uint    `json:"ownerId"`
		Name        string  `json:"name"`
		Description *string `json:"description,omitempty"`
	}

	AddProjectMemberReq struct {
		UserID uint       `json:"userId" binding:"required"`
		Role   model.Role `json:"role" binding:"required"`
	}
)

func toProjectResp(p *model.Project) ProjectResp {
	return ProjectResp{
		ID: p.ID, WorkspaceID: p.WorkspaceID, OwnerID: p.OwnerID,
		Name: p.Name, Description: p.Description,
	}
}

// relationOr404 resolves the project relation, writing the 404 for a missing
// project. Callers without any relation also get a 404, never a 403.
func (mgr *ProjectMgr) relationOr404(c *gin.Context, projectID uint) (permit.Relation, *model.Project) {
	token := util.GetToken(c)
	rel, project, err := mgr.resolver.ProjectRelation(c, token.UserID, projectID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Project not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return permit.RelNone, nil
	}
	if !permit.Allowed(rel, permit.ActionViewProject) {
		resputil.NotFoundError(c, "Project not found")
		return permit.RelNone, nil
	}
	return rel, project
}

// ListForUser godoc
// @Summary List projects visible to the current user
// @Description Optionally filtered to one workspace via ?workspaceId=
// @Tags Project
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]ProjectResp] "projects"
// @Router /v1/projects [get]
func (mgr *ProjectMgr) ListForUser(c *gin.Context) {
	token := util.GetToken(c)

	var filter struct {
		WorkspaceID *uint `form:"workspaceId"`
	}
	if err := c.ShouldBindQuery(&filter); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	// Projects where the user is a direct member, owns the project, or has
	// implicit access through workspace ownership/adminship.
	var adminWorkspaceIDs []uint
	if err := mgr.db.WithContext(c).Model(&model.WorkspaceMember{}).
		Where("user_id = ? AND role IN ?", token.UserID, []model.Role{model.RoleAdmin, model.RoleOwner}).
		Pluck("workspace_id", &adminWorkspaceIDs).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	var memberProjectIDs []uint
	if err := mgr.db.WithContext(c).Model(&model.ProjectMember{}).
		Where("user_id = ?", token.UserID).
		Pluck("project_id", &memberProjectIDs).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	q := mgr.db.WithContext(c).Model(&model.Project{}).
		Where("id IN ? OR owner_id = ? OR workspace_id IN ?",
			memberProjectIDs, token.UserID, adminWorkspaceIDs)
	if filter.WorkspaceID != nil {
		q = q.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	var projects []model.Project
	if err := q.Order("id DESC").Find(&projects).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(projects, func(p model.Project, _ int) ProjectResp {
		return toProjectResp(&p)
	}))
}

// Create godoc
// @Summary Create a project in a workspace
// @Description Requires workspace admin; the creator becomes project owner
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body ProjectCreateReq true "project parameters"
// @Success 200 {object} resputil.Response[ProjectResp] "created project"
// @Failure 403 {object} resputil.Response[any] "requires workspace admin"
// @Failure 404 {object} resputil.Response[any] "workspace not found"
// @Router /v1/projects [post]
func (mgr *ProjectMgr) Create(c *gin.Context) {
	token := util.GetToken(c)

	var req ProjectCreateReq
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
	if !permit.Allowed(rel, permit.ActionCreateProject) {
		resputil.ForbiddenError(c, "Requires workspace admin")
		return
	}

	project := model.Project{
		WorkspaceID: req.WorkspaceID,
		OwnerID:     token.UserID,
		Name:        req.Name,
		Description: req.Description,
	}
	txErr := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := model.ProjectMember{
			ProjectID: project.ID,
			UserID:    token.UserID,
			Role:      model.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if txErr != nil {
		resputil.Error(c, txErr.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toProjectResp(&project))
}

// Get godoc
// @Summary Get one project
// @Tags Project
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[ProjectResp] "project"
// @Failure 404 {object} resputil.Response[any] "project not found"
// @Router /v1/projects/{pid} [get]
func (mgr *ProjectMgr) Get(c *gin.Context) {
	var uriReq ProjectIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	_, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}
	resputil.Success(c, toProjectResp(project))
}

// Update godoc
// @Summary Update project name or description
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "project updated"
// @Failure 403 {object} resputil.Response[any] "requires project admin"
// @Router /v1/projects/{pid} [put]
func (mgr *ProjectMgr) Update(c *gin.Context) {
	var uriReq ProjectIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req ProjectUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionEditProject) {
		resputil.ForbiddenError(c, "Requires project admin")
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
	if err := mgr.db.WithContext(c).Model(project).Updates(updates).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// Delete godoc
// @Summary Delete a project and everything under it
// @Tags Project
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "project deleted"
// @Failure 403 {object} resputil.Response[any] "requires project admin"
// @Router /v1/projects/{pid} [delete]
func (mgr *ProjectMgr) Delete(c *gin.Context) {
	var uriReq ProjectIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionDeleteProject) {
		resputil.ForbiddenError(c, "Requires project admin")
		return
	}

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint
		if err := tx.Model(&model.Task{}).
			Where("project_id = ?", project.ID).
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
		if err := tx.Where("project_id = ?", project.ID).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// ListMembers godoc
// @Summary List project members
// @Tags Project
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]MemberResp] "members with roles"
// @Router /v1/projects/{pid}/members [get]
func (mgr *ProjectMgr) ListMembers(c *gin.Context) {
	var uriReq ProjectIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	_, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}

	var members []model.ProjectMember
	if err := mgr.db.WithContext(c).
		Preload("User").
		Where("project_id = ?", project.ID).
		Order("id").
		Find(&members).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(members, func(m model.ProjectMember, _ int) MemberResp {
		return MemberResp{
			User: payload.UserSummary{
				ID:       m.User.ID,
				Name:     m.User.Name,
				Nickname: m.User.Attributes.Data().Nickname,
			},
			Role: m.Role,
		}
	}))
}

// AddMember godoc
// @Summary Add a workspace member to the project
// @Description The user must already belong to the project's workspace
// @Tags Project
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body AddProjectMemberReq true "member parameters"
// @Success 200 {object} resputil.Response[any] "member added"
// @Failure 400 {object} resputil.Response[any] "user is not in the workspace"
// @Failure 403 {object} resputil.Response[any] "requires project admin"
// @Router /v1/projects/{pid}/members [post]
func (mgr *ProjectMgr) AddMember(c *gin.Context) {
	var uriReq ProjectIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AddProjectMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		resputil.BadRequestError(c, "Role must be member or admin")
		return
	}
	rel, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionManageProjectMembers) {
		resputil.ForbiddenError(c, "Requires project admin")
		return
	}

	var ws model.Workspace
	if err := mgr.db.WithContext(c).First(&ws, project.WorkspaceID).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if req.UserID != ws.OwnerID {
		var count int64
		if err := mgr.db.WithContext(c).Model(&model.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", project.WorkspaceID, req.UserID).
			Count(&count).Error; err != nil {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
			return
		}
		if count == 0 {
			resputil.BadRequestError(c, "User is not a member of the workspace")
			return
		}
	}

	member := model.ProjectMember{
		ProjectID: project.ID,
		UserID:    req.UserID,
		Role:      req.Role,
	}
	if err := mgr.db.WithContext(c).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// RemoveMember godoc
// @Summary Remove a member from the project
// @Tags Project
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "member removed"
// @Failure 403 {object} resputil.Response[any] "requires project admin"
// @Router /v1/projects/{pid}/members/{uid} [delete]
func (mgr *ProjectMgr) RemoveMember(c *gin.Context) {
	var uriReq ProjectMemberURIReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	rel, project := mgr.relationOr404(c, uriReq.ProjectID)
	if project == nil {
		return
	}
	if uriReq.UserID != token.UserID && !permit.Allowed(rel, permit.ActionManageProjectMembers) {
		resputil.ForbiddenError(c, "Requires project admin")
		return
	}
	if uriReq.UserID == project.OwnerID {
		resputil.BadRequestError(c, "The project owner cannot be removed")
		return
	}

	res := mgr.db.WithContext(c).
		Where("project_id = ? AND user_id = ?", project.ID, uriReq.UserID).
		Delete(&model.ProjectMember{})
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
