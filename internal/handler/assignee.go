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
	"github.com/raids-lab/teamspace/pkg/assign"
	"github.com/raids-lab/teamspace/pkg/permit"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAssigneeMgr)
}

// AssigneeMgr serves the multi-assignee surface of tasks. All mutation
// semantics live in the assign coordinator; this layer only binds requests
// and maps coordinator errors onto status codes.
type AssigneeMgr struct {
	name        string
	db          *gorm.DB
	resolver    *permit.Resolver
	coordinator *assign.Coordinator
}

func NewAssigneeMgr(conf *RegisterConfig) Manager {
	return &AssigneeMgr{
		name:        "tasks",
		db:          conf.DB,
		resolver:    conf.Resolver,
		coordinator: conf.Coordinator,
	}
}

func (mgr *AssigneeMgr) GetName() string { return mgr.name }

func (mgr *AssigneeMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *AssigneeMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/:tid/assignees", mgr.List)
	g.POST("/:tid/assignees", mgr.Add)
	g.DELETE("/:tid/assignees", mgr.Remove)
}

func (mgr *AssigneeMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	AssigneeMutationReq struct {
		UserIDs []uint `json:"userIds" binding:"required,min=1"`
	}

	AssignmentResp struct {
		User       payload.UserSummary `json:"user"`
		AssignedBy payload.UserSummary `json:"assignedBy"`
		AssignedAt time.Time           `json:"assignedAt"`
	}

	AddAssigneesResp struct {
		Message     string           `json:"message"`
		Assignments []AssignmentResp `json:"assignments"`
	}

	RemoveAssigneesResp struct {
		Message      string `json:"message"`
		RemovedCount int64  `json:"removedCount"`
	}
)

// List godoc
// @Summary List the assignees of a task
// @Tags Assignee
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]AssignmentResp] "assignments with assigner info"
// @Failure 404 {object} resputil.Response[any] "task not found"
// @Router /v1/tasks/{tid}/assignees [get]
func (mgr *AssigneeMgr) List(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	rel, _, err := mgr.resolver.TaskRelation(c, token.UserID, uriReq.TaskID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Task not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !permit.Allowed(rel, permit.ActionViewTask) {
		resputil.NotFoundError(c, "Task not found")
		return
	}

	var assignments []model.TaskAssignee
	if err := mgr.db.WithContext(c).
		Preload("User").
		Preload("Assigner").
		Where("task_id = ?", uriReq.TaskID).
		Order("id").
		Find(&assignments).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(assignments, func(a model.TaskAssignee, _ int) AssignmentResp {
		return AssignmentResp{
			User: payload.UserSummary{
				ID:       a.User.ID,
				Name:     a.User.Name,
				Nickname: a.User.Attributes.Data().Nickname,
			},
			AssignedBy: payload.UserSummary{
				ID:       a.Assigner.ID,
				Name:     a.Assigner.Name,
				Nickname: a.Assigner.Attributes.Data().Nickname,
			},
			AssignedAt: a.AssignedAt,
		}
	}))
}

// Add godoc
// @Summary Assign users to a task
// @Description Duplicates are ignored; assigning only already-assigned users is a success
// @Tags Assignee
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body AssigneeMutationReq true "target user ids"
// @Success 200 {object} resputil.Response[AddAssigneesResp] "assignment result"
// @Failure 400 {object} resputil.Response[any] "targets outside the workspace"
// @Failure 403 {object} resputil.Response[any] "assignment not permitted"
// @Failure 404 {object} resputil.Response[any] "task not found"
// @Router /v1/tasks/{tid}/assignees [post]
func (mgr *AssigneeMgr) Add(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AssigneeMutationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	result, err := mgr.coordinator.AddAssignees(c, uriReq.TaskID, token.UserID, req.UserIDs)
	if err != nil {
		mgr.writeCoordinatorError(c, err)
		return
	}

	assignments := lo.Map(result.Assignments, func(a model.TaskAssignee, _ int) AssignmentResp {
		return AssignmentResp{
			User:       mgr.userSummary(c, a.UserID),
			AssignedBy: payload.UserSummary{ID: token.UserID, Name: token.Username},
			AssignedAt: a.AssignedAt,
		}
	})
	resputil.SuccessWithMessage(c, result.Message, AddAssigneesResp{
		Message:     result.Message,
		Assignments: assignments,
	})
}

// Remove godoc
// @Summary Unassign users from a task
// @Description Removing users who are not assigned is a no-op success
// @Tags Assignee
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body AssigneeMutationReq true "target user ids"
// @Success 200 {object} resputil.Response[RemoveAssigneesResp] "removal result"
// @Failure 403 {object} resputil.Response[any] "assignment not permitted"
// @Failure 404 {object} resputil.Response[any] "task not found"
// @Router /v1/tasks/{tid}/assignees [delete]
func (mgr *AssigneeMgr) Remove(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AssigneeMutationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	result, err := mgr.coordinator.RemoveAssignees(c, uriReq.TaskID, token.UserID, req.UserIDs)
	if err != nil {
		mgr.writeCoordinatorError(c, err)
		return
	}
	resputil.SuccessWithMessage(c, result.Message, RemoveAssigneesResp{
		Message:      result.Message,
		RemovedCount: result.RemovedCount,
	})
}

// writeCoordinatorError maps coordinator failures onto status codes: a missing
// task is 404, a denied mutation 403, invalid targets 400. The order matters;
// existence is checked before capability so a denial never reveals the task.
func (mgr *AssigneeMgr) writeCoordinatorError(c *gin.Context, err error) {
	var invalidTargets *assign.InvalidTargetsError
	switch {
	case errors.Is(err, permit.ErrNotFound):
		resputil.NotFoundError(c, "Task not found")
	case errors.Is(err, assign.ErrForbidden):
		resputil.ForbiddenError(c, "Assignment not permitted")
	case errors.As(err, &invalidTargets):
		resputil.BadRequestError(c, invalidTargets.Error())
	default:
		resputil.Error(c, err.Error(), resputil.NotSpecified)
	}
}

func (mgr *AssigneeMgr) userSummary(c *gin.Context, userID uint) payload.UserSummary {
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, userID).Error; err != nil {
		return payload.UserSummary{ID: userID}
	}
	return payload.UserSummary{
		ID:       user.ID,
		Name:     user.Name,
		Nickname: user.Attributes.Data().Nickname,
	}
}
