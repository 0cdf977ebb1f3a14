package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/permit"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewPermissionMgr)
}

// PermissionMgr exposes the permission evaluator so clients can render UI
// affordances without attempting the mutation first. Answers mirror the
// enforcement on the real endpoints, including the 404-over-403 rule for
// resources the caller cannot see.
type PermissionMgr struct {
	name     string
	db       *gorm.DB
	resolver *permit.Resolver
}

func NewPermissionMgr(conf *RegisterConfig) Manager {
	return &PermissionMgr{
		name:     "permissions",
		db:       conf.DB,
		resolver: conf.Resolver,
	}
}

func (mgr *PermissionMgr) GetName() string { return mgr.name }

func (mgr *PermissionMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *PermissionMgr) RegisterProtected(g *gin.RouterGroup) {
	g.POST("/check", mgr.Check)
	g.GET("/bulk", mgr.Bulk)
}

func (mgr *PermissionMgr) RegisterAdmin(_ *gin.RouterGroup) {}

const (
	resourceWorkspace = "workspace"
	resourceProject   = "project"
	resourceTask      = "task"
)

type (
	CheckReq struct {
		Type       string        `json:"type" binding:"required"`
		Action     permit.Action `json:"action" binding:"required"`
		ResourceID uint          `json:"resourceId" binding:"required"`
		// Accepted for older clients that always send the workspace scope;
		// resolution only needs the resource id.
		WorkspaceID *uint `json:"workspaceId"`
	}

	CheckResp struct {
		Allowed bool `json:"allowed"`
	}

	BulkReq struct {
		WorkspaceID *uint `form:"workspaceId"`
		ProjectID   *uint `form:"projectId"`
		TaskID      *uint `form:"taskId"`
	}

	WorkspacePermissions struct {
		Relation      string `json:"relation"`
		View          bool   `json:"view"`
		Edit          bool   `json:"edit"`
		Delete        bool   `json:"delete"`
		ManageMembers bool   `json:"manageMembers"`
		Invite        bool   `json:"invite"`
		CreateProject bool   `json:"createProject"`
	}

	ProjectPermissions struct {
		Relation      string `json:"relation"`
		View          bool   `json:"view"`
		Edit          bool   `json:"edit"`
		Delete        bool   `json:"delete"`
		ManageMembers bool   `json:"manageMembers"`
		CreateTask    bool   `json:"createTask"`
	}

	TaskPermissions struct {
		Relation        string `json:"relation"`
		View            bool   `json:"view"`
		Edit            bool   `json:"edit"`
		Delete          bool   `json:"delete"`
		Comment         bool   `json:"comment"`
		ViewAttachments bool   `json:"viewAttachments"`
		Assign          bool   `json:"assign"`
	}

	BulkResp struct {
		Workspace *WorkspacePermissions `json:"workspace,omitempty"`
		Project   *ProjectPermissions   `json:"project,omitempty"`
		Task      *TaskPermissions      `json:"task,omitempty"`
	}
)

// Check godoc
// @Summary Check one permission
// @Description Evaluates (user, resource, action) to a boolean without side effects
// @Tags Permission
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CheckReq true "resource type, action and id"
// @Success 200 {object} resputil.Response[CheckResp] "evaluation result"
// @Failure 400 {object} resputil.Response[any] "unknown resource type or action"
// @Failure 404 {object} resputil.Response[any] "resource not found"
// @Router /v1/permissions/check [post]
func (mgr *PermissionMgr) Check(c *gin.Context) {
	var req CheckReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if !permit.ValidAction(req.Action) {
		resputil.BadRequestError(c, "Unknown action")
		return
	}
	token := util.GetToken(c)

	var (
		rel permit.Relation
		err error
	)
	switch req.Type {
	case resourceWorkspace:
		rel, _, err = mgr.resolver.WorkspaceRelation(c, token.UserID, req.ResourceID)
	case resourceProject:
		rel, _, err = mgr.resolver.ProjectRelation(c, token.UserID, req.ResourceID)
	case resourceTask:
		rel, _, err = mgr.resolver.TaskRelation(c, token.UserID, req.ResourceID)
	default:
		resputil.BadRequestError(c, "Unknown resource type")
		return
	}
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Resource not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	resputil.Success(c, CheckResp{Allowed: permit.Allowed(rel, req.Action)})
}

// Bulk godoc
// @Summary Evaluate all permissions for the referenced resources
// @Description One round trip instead of one check per action; pass any of workspaceId, projectId, taskId
// @Tags Permission
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[BulkResp] "per-resource permission sets"
// @Failure 404 {object} resputil.Response[any] "a referenced resource was not found"
// @Router /v1/permissions/bulk [get]
func (mgr *PermissionMgr) Bulk(c *gin.Context) {
	var req BulkReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.WorkspaceID == nil && req.ProjectID == nil && req.TaskID == nil {
		resputil.BadRequestError(c, "At least one resource id is required")
		return
	}
	token := util.GetToken(c)

	var resp BulkResp
	if req.WorkspaceID != nil {
		rel, _, err := mgr.resolver.WorkspaceRelation(c, token.UserID, *req.WorkspaceID)
		if mgr.writeResolveError(c, err) {
			return
		}
		resp.Workspace = &WorkspacePermissions{
			Relation:      rel.String(),
			View:          permit.Allowed(rel, permit.ActionViewWorkspace),
			Edit:          permit.Allowed(rel, permit.ActionEditWorkspace),
			Delete:        permit.Allowed(rel, permit.ActionDeleteWorkspace),
			ManageMembers: permit.Allowed(rel, permit.ActionManageWorkspaceMembers),
			Invite:        permit.Allowed(rel, permit.ActionInviteMember),
			CreateProject: permit.Allowed(rel, permit.ActionCreateProject),
		}
	}
	if req.ProjectID != nil {
		rel, _, err := mgr.resolver.ProjectRelation(c, token.UserID, *req.ProjectID)
		if mgr.writeResolveError(c, err) {
			return
		}
		resp.Project = &ProjectPermissions{
			Relation:      rel.String(),
			View:          permit.Allowed(rel, permit.ActionViewProject),
			Edit:          permit.Allowed(rel, permit.ActionEditProject),
			Delete:        permit.Allowed(rel, permit.ActionDeleteProject),
			ManageMembers: permit.Allowed(rel, permit.ActionManageProjectMembers),
			CreateTask:    permit.Allowed(rel, permit.ActionCreateTask),
		}
	}
	if req.TaskID != nil {
		rel, _, err := mgr.resolver.TaskRelation(c, token.UserID, *req.TaskID)
		if mgr.writeResolveError(c, err) {
			return
		}
		resp.Task = &TaskPermissions{
			Relation:        rel.String(),
			View:            permit.Allowed(rel, permit.ActionViewTask),
			Edit:            permit.Allowed(rel, permit.ActionEditTask),
			Delete:          permit.Allowed(rel, permit.ActionDeleteTask),
			Comment:         permit.Allowed(rel, permit.ActionComment),
			ViewAttachments: permit.Allowed(rel, permit.ActionViewAttachments),
			Assign:          permit.Allowed(rel, permit.ActionAssignTask),
		}
	}
	resputil.Success(c, resp)
}

func (mgr *PermissionMgr) writeResolveError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, permit.ErrNotFound) {
		resputil.NotFoundError(c, "Resource not found")
	} else {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	}
	return true
}
