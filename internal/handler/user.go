package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewUserMgr)
}

type UserMgr struct {
	name string
	db   *gorm.DB
}

func NewUserMgr(conf *RegisterConfig) Manager {
	return &UserMgr{
		name: "users",
		db:   conf.DB,
	}
}

func (mgr *UserMgr) GetName() string { return mgr.name }

func (mgr *UserMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *UserMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("/me", mgr.GetCurrentUser)
	g.PUT("/me/attributes", mgr.UpdateAttributes)
}

func (mgr *UserMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("", mgr.ListForAdmin)
	g.PUT("/:uid/role", mgr.UpdateRole)
	g.PUT("/:uid/status", mgr.UpdateStatus)
}

type UserResp struct {
	ID         uint                `json:"id"`
	Name       string              `json:"name"`
	Role       model.Role          `json:"role"`
	Status     model.Status        `json:"status"`
	Attributes model.UserAttribute `json:"attributes"`
}

func toUserResp(user *model.User) UserResp {
	return UserResp{
		ID:         user.ID,
		Name:       user.Name,
		Role:       user.Role,
		Status:     user.Status,
		Attributes: user.Attributes.Data(),
	}
}

// GetCurrentUser godoc
// @Summary Get the current user
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[UserResp] "current user"
// @Router /v1/users/me [get]
func (mgr *UserMgr) GetCurrentUser(c *gin.Context) {
	token := util.GetToken(c)
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.Error(c, "User not found", resputil.NotSpecified)
		return
	}
	resputil.Success(c, toUserResp(&user))
}

// UpdateAttributes godoc
// @Summary Update the current user's profile attributes
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Param attributes body model.UserAttribute true "user attributes"
// @Success 200 {object} resputil.Response[any] "attributes updated"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Router /v1/users/me/attributes [put]
func (mgr *UserMgr) UpdateAttributes(c *gin.Context) {
	token := util.GetToken(c)

	var attributes model.UserAttribute
	if err := c.ShouldBindJSON(&attributes); err != nil {
		resputil.BadRequestError(c, "Invalid request body")
		return
	}

	if err := mgr.db.WithContext(c).Model(&model.User{}).
		Where("id = ?", token.UserID).
		Update("attributes", datatypes.NewJSONType(attributes)).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, "")
}

// ListForAdmin godoc
// @Summary List all users
// @Tags User
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]UserResp] "all users"
// @Router /v1/admin/users [get]
func (mgr *UserMgr) ListForAdmin(c *gin.Context) {
	var users []model.User
	if err := mgr.db.WithContext(c).Order("id").Find(&users).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resp := make([]UserResp, len(users))
	for i := range users {
		resp[i] = toUserResp(&users[i])
	}
	resputil.Success(c, resp)
}

type (
	UserIDReq struct {
		UserID uint `uri:"uid" binding:"required"`
	}
	UpdateRoleReq struct {
		Role model.Role `json:"role" binding:"required"`
	}
	UpdateStatusReq struct {
		Status model.Status `json:"status" binding:"required"`
	}
)

// UpdateRole godoc
// @Summary Update a user's platform role
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "role updated"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Router /v1/admin/users/{uid}/role [put]
func (mgr *UserMgr) UpdateRole(c *gin.Context) {
	var uriReq UserIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	if req.Role != model.RoleMember && req.Role != model.RoleAdmin {
		resputil.BadRequestError(c, "Role must be member or admin")
		return
	}
	res := mgr.db.WithContext(c).Model(&model.User{}).
		Where("id = ?", uriReq.UserID).Update("role", req.Role)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.NotFoundError(c, "User not found")
		return
	}
	resputil.Success(c, "")
}

// UpdateStatus godoc
// @Summary Activate or deactivate a user
// @Tags User
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[any] "status updated"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Router /v1/admin/users/{uid}/status [put]
func (mgr *UserMgr) UpdateStatus(c *gin.Context) {
	var uriReq UserIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	var req UpdateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	res := mgr.db.WithContext(c).Model(&model.User{}).
		Where("id = ?", uriReq.UserID).Update("status", req.Status)
	if res.Error != nil {
		resputil.Error(c, res.Error.Error(), resputil.NotSpecified)
		return
	}
	if res.RowsAffected == 0 {
		resputil.NotFoundError(c, "User not found")
		return
	}
	resputil.Success(c, "")
}
