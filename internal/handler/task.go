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
	Registers = append(Registers, NewTaskMgr)
}

type TaskMgr struct {
	name     string
	db       *gorm.DB
	resolver *permit.Resolver
	outbox   *notify.Outbox
}

func NewTaskMgr(conf *RegisterConfig) Manager {
	return &TaskMgr{
		name:     "tasks",
		db:       conf.DB,
		resolver: conf.Resolver,
		outbox:   conf.Outbox,
	}
}

func (mgr *TaskMgr) GetName() string { return mgr.name }

func (mgr *TaskMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *TaskMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.ListForUser)
	g.POST("", mgr.Create)
	g.GET("/:tid", mgr.Get)
	g.PUT("/:tid", mgr.Update)
	g.DELETE("/:tid", mgr.Delete)

	g.GET("/:tid/comments", mgr.ListComments)
	g.POST("/:tid/comments", mgr.AddComment)

	g.GET("/:tid/attachments", mgr.ListAttachments)
	g.POST("/:tid/attachments", mgr.AddAttachment)
}

func (mgr *TaskMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	TaskIDReq struct {
		TaskID uint `uri:"tid" binding:"required"`
	}

	TaskCreateReq struct {
		ProjectID   uint               `json:"projectId" binding:"required"`
		Title       string             `json:"title" binding:"required"`
		Description *string            `json:"description"`
		Priority    model.TaskPriority `json:"priority"`
		DueDate     *time.Time         `json:"dueDate"`
	}

	TaskUpdateReq struct {
		Title       *string             `json:"title"`
		Description *string             `json:"description"`
		Status      *model.TaskStatus   `json:"status"`
		Priority    *model.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"dueDate"`
	}

	TaskResp struct {
		ID          uint               `json:"id"`
		ProjectID   uint               `json:"projectId"`
		CreatorID   uint               `json:"creatorId"`
		AssigneeID  *uint              `json:"assigneeId"` // legacy single-assignee mirror
		Title       string             `json:"title"`
		Description *string            `json:"description,omitempty"`
		Status      model.TaskStatus   `json:"status"`
		Priority    model.TaskPriority `json:"priority"`
		DueDate     *time.Time         `json:"dueDate,omitempty"`
		CreatedAt   time.Time          `json:"createdAt"`
	}

	CommentCreateReq struct {
		Body string `json:"body" binding:"required"`
	}

	CommentResp struct {
		ID        uint                `json:"id"`
		Author    payload.UserSummary `json:"author"`
		Body      string              `json:"body"`
		CreatedAt time.Time           `json:"createdAt"`
	}

	AttachmentCreateReq struct {
		FileName    string `json:"fileName" binding:"required"`
		ContentType string `json:"contentType"`
		Size        int64  `json:"size" binding:"required"`
	}

	AttachmentResp struct {
		ID          uint      `json:"id"`
		UploaderID  uint      `json:"uploaderId"`
		FileName    string    `json:"fileName"`
		ContentType string    `json:"contentType,omitempty"`
		Size        int64     `json:"size"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

func toTaskResp(t *model.Task) TaskResp {
	return TaskResp{
		ID: t.ID, ProjectID: t.ProjectID, CreatorID: t.CreatorID,
		AssigneeID: t.AssigneeID, Title: t.Title, Description: t.Description,
		Status: t.Status, Priority: t.Priority, DueDate: t.DueDate,
		CreatedAt: t.CreatedAt,
	}
}

// relationOr404 resolves the task relation, answering 404 both for a missing
// task and for a caller with no view capability.
func (mgr *TaskMgr) relationOr404(c *gin.Context, taskID uint) (permit.Relation, *model.Task) {
	token := util.GetToken(c)
	rel, task, err := mgr.resolver.TaskRelation(c, token.UserID, taskID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Task not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return permit.RelNone, nil
	}
	if !permit.Allowed(rel, permit.ActionViewTask) {
		resputil.NotFoundError(c, "Task not found")
		return permit.RelNone, nil
	}
	return rel, task
}

// ListForUser godoc
// @Summary List tasks in a project
// @Description Filtered by ?projectId= (required) and optional ?status=
// @Tags Task
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]TaskResp] "tasks"
// @Failure 404 {object} resputil.Response[any] "project not found"
// @Router /v1/tasks [get]
func (mgr *TaskMgr) ListForUser(c *gin.Context) {
	token := util.GetToken(c)

	var filter struct {
		ProjectID uint              `form:"projectId" binding:"required"`
		Status    *model.TaskStatus `form:"status"`
	}
	if err := c.ShouldBindQuery(&filter); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	rel, _, err := mgr.resolver.ProjectRelation(c, token.UserID, filter.ProjectID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Project not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !permit.Allowed(rel, permit.ActionViewProject) {
		resputil.NotFoundError(c, "Project not found")
		return
	}

	q := mgr.db.WithContext(c).Where("project_id = ?", filter.ProjectID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var tasks []model.Task
	if err := q.Order("id DESC").Find(&tasks).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(tasks, func(t model.Task, _ int) TaskResp {
		return toTaskResp(&t)
	}))
}

// Create godoc
// @Summary Create a task in a project
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body TaskCreateReq true "task parameters"
// @Success 200 {object} resputil.Response[TaskResp] "created task"
// @Failure 403 {object} resputil.Response[any] "requires project membership"
// @Failure 404 {object} resputil.Response[any] "project not found"
// @Router /v1/tasks [post]
func (mgr *TaskMgr) Create(c *gin.Context) {
	token := util.GetToken(c)

	var req TaskCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	rel, _, err := mgr.resolver.ProjectRelation(c, token.UserID, req.ProjectID)
	if err != nil {
		if errors.Is(err, permit.ErrNotFound) {
			resputil.NotFoundError(c, "Project not found")
		} else {
			resputil.Error(c, err.Error(), resputil.NotSpecified)
		}
		return
	}
	if !permit.Allowed(rel, permit.ActionCreateTask) {
		resputil.ForbiddenError(c, "Requires project membership")
		return
	}

	priority := req.Priority
	if priority == 0 {
		priority = model.PriorityMedium
	}
	task := model.Task{
		ProjectID:   req.ProjectID,
		CreatorID:   token.UserID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
	}
	if err := mgr.db.WithContext(c).Create(&task).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toTaskResp(&task))
}

// Get godoc
// @Summary Get one task
// @Tags Task
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[TaskResp] "task"
// @Failure 404 {object} resputil.Response[any] "task not found"
// @Router /v1/tasks/{tid} [get]
func (mgr *TaskMgr) Get(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	_, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	resputil.Success(c, toTaskResp(task))
}

// Update godoc
// @Summary Update task fields
// @Description Assignees and creators may edit; the legacy assigneeId cannot be set here
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[TaskResp] "updated task"
// @Failure 403 {object} resputil.Response[any] "not allowed to edit this task"
// @Router /v1/tasks/{tid} [put]
func (mgr *TaskMgr) Update(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req TaskUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionEditTask) {
		resputil.ForbiddenError(c, "Not allowed to edit this task")
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if len(updates) == 0 {
		resputil.SuccessWithMessage(c, "nothing to update", toTaskResp(task))
		return
	}
	if err := mgr.db.WithContext(c).Model(task).Updates(updates).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toTaskResp(task))
}

// Delete godoc
// @Summary Delete a task
// @Description Only the creator or project admins may delete
// @Tags Task
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "task deleted"
// @Failure 403 {object} resputil.Response[any] "not allowed to delete this task"
// @Router /v1/tasks/{tid} [delete]
func (mgr *TaskMgr) Delete(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionDeleteTask) {
		resputil.ForbiddenError(c, "Not allowed to delete this task")
		return
	}

	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.TaskAssignee{}, &model.Comment{}, &model.Attachment{}} {
			if err := tx.Where("task_id = ?", task.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(task).Error
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// ListComments godoc
// @Summary List comments on a task
// @Tags Task
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]CommentResp] "comments, oldest first"
// @Router /v1/tasks/{tid}/comments [get]
func (mgr *TaskMgr) ListComments(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	_, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}

	var comments []model.Comment
	if err := mgr.db.WithContext(c).
		Preload("Author").
		Where("task_id = ?", task.ID).
		Order("id").
		Find(&comments).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(comments, func(cm model.Comment, _ int) CommentResp {
		return CommentResp{
			ID: cm.ID,
			Author: payload.UserSummary{
				ID:       cm.Author.ID,
				Name:     cm.Author.Name,
				Nickname: cm.Author.Attributes.Data().Nickname,
			},
			Body:      cm.Body,
			CreatedAt: cm.CreatedAt,
		}
	}))
}

// AddComment godoc
// @Summary Comment on a task
// @Description Commenting requires a direct relation to the task; other assignees are notified
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body CommentCreateReq true "comment body"
// @Success 200 {object} resputil.Response[CommentResp] "created comment"
// @Failure 403 {object} resputil.Response[any] "not allowed to comment"
// @Router /v1/tasks/{tid}/comments [post]
func (mgr *TaskMgr) AddComment(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req CommentCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	rel, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionComment) {
		resputil.ForbiddenError(c, "Not allowed to comment on this task")
		return
	}

	comment := model.Comment{
		TaskID:   task.ID,
		AuthorID: token.UserID,
		Body:     req.Body,
	}
	err := mgr.db.WithContext(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		// Notify everyone attached to the task except the author.
		var recipients []uint
		if err := tx.Model(&model.TaskAssignee{}).
			Where("task_id = ?", task.ID).
			Pluck("user_id", &recipients).Error; err != nil {
			return err
		}
		recipients = append(recipients, task.CreatorID)
		for _, userID := range lo.Uniq(recipients) {
			if userID == token.UserID {
				continue
			}
			if err := mgr.outbox.CommentAdded(tx, userID, task, token.UserID); err != nil {
				logutils.Log.WithFields(logutils.Fields{
					"task": task.ID, "user": userID,
				}).Warnf("append comment notification failed: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, CommentResp{
		ID:        comment.ID,
		Author:    payload.UserSummary{ID: token.UserID, Name: token.Username},
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	})
}

// ListAttachments godoc
// @Summary List attachments on a task
// @Tags Task
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]AttachmentResp] "attachment metadata"
// @Failure 403 {object} resputil.Response[any] "not allowed to view attachments"
// @Router /v1/tasks/{tid}/attachments [get]
func (mgr *TaskMgr) ListAttachments(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	rel, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionViewAttachments) {
		resputil.ForbiddenError(c, "Not allowed to view attachments on this task")
		return
	}

	var attachments []model.Attachment
	if err := mgr.db.WithContext(c).
		Where("task_id = ?", task.ID).
		Order("id").
		Find(&attachments).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(attachments, func(a model.Attachment, _ int) AttachmentResp {
		return AttachmentResp{
			ID: a.ID, UploaderID: a.UploaderID, FileName: a.FileName,
			ContentType: a.ContentType, Size: a.Size, CreatedAt: a.CreatedAt,
		}
	}))
}

// AddAttachment godoc
// @Summary Record an attachment on a task
// @Tags Task
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body AttachmentCreateReq true "attachment metadata"
// @Success 200 {object} resputil.Response[AttachmentResp] "created attachment"
// @Failure 403 {object} resputil.Response[any] "not allowed to attach files"
// @Router /v1/tasks/{tid}/attachments [post]
func (mgr *TaskMgr) AddAttachment(c *gin.Context) {
	var uriReq TaskIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req AttachmentCreateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)
	rel, task := mgr.relationOr404(c, uriReq.TaskID)
	if task == nil {
		return
	}
	if !permit.Allowed(rel, permit.ActionViewAttachments) {
		resputil.ForbiddenError(c, "Not allowed to attach files to this task")
		return
	}

	attachment := model.Attachment{
		TaskID:      task.ID,
		UploaderID:  token.UserID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Size:        req.Size,
	}
	if err := mgr.db.WithContext(c).Create(&attachment).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, AttachmentResp{
		ID: attachment.ID, UploaderID: attachment.UploaderID,
		FileName: attachment.FileName, ContentType: attachment.ContentType,
		Size: attachment.Size, CreatedAt: attachment.CreatedAt,
	})
}
