package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	ldap "github.com/go-ldap/ldap/v3"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/config"
	"github.com/raids-lab/teamspace/pkg/logutils"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewAuthMgr)
}

type AuthMgr struct {
	name     string
	db       *gorm.DB
	tokenMgr *util.TokenManager
}

func NewAuthMgr(conf *RegisterConfig) Manager {
	return &AuthMgr{
		name:     "auth",
		db:       conf.DB,
		tokenMgr: util.GetTokenMgr(),
	}
}

func (mgr *AuthMgr) GetName() string { return mgr.name }

func (mgr *AuthMgr) RegisterPublic(g *gin.RouterGroup) {
	g.POST("/signup", mgr.Signup)
	g.POST("/login", mgr.Login)
	g.POST("/refresh", mgr.RefreshToken)
}

func (mgr *AuthMgr) RegisterProtected(_ *gin.RouterGroup) {}
func (mgr *AuthMgr) RegisterAdmin(_ *gin.RouterGroup)     {}

const (
	AuthMethodNormal = "normal"
	AuthMethodLDAP   = "ldap"
)

type (
	SignupReq struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
		Email    string `json:"email" binding:"required,email"`
	}

	LoginReq struct {
		Username   string `json:"username" binding:"required"`
		Password   string `json:"password" binding:"required"`
		AuthMethod string `json:"auth" binding:"required"` // [normal, ldap]
	}

	LoginResp struct {
		AccessToken  string      `json:"accessToken"`
		RefreshToken string      `json:"refreshToken"`
		Context      UserContext `json:"context"`
	}

	UserContext struct {
		UserID       uint       `json:"userId"`
		Username     string     `json:"username"`
		RolePlatform model.Role `json:"rolePlatform"`
	}

	RefreshReq struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
)

// Signup godoc
// @Summary Register a local account
// @Description Create a user with a bcrypt password and return tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body SignupReq true "signup parameters"
// @Success 200 {object} resputil.Response[LoginResp] "tokens for the new user"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Failure 500 {object} resputil.Response[any] "other errors"
// @Router /v1/auth/signup [post]
func (mgr *AuthMgr) Signup(c *gin.Context) {
	var req SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	var count int64
	if err := mgr.db.WithContext(c).Model(&model.User{}).
		Where("name = ?", req.Username).Count(&count).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if count > 0 {
		resputil.BadRequestError(c, "Username already taken")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	user := model.User{
		Name:     req.Username,
		Password: lo.ToPtr(string(hashed)),
		Role:     model.RoleMember,
		Status:   model.StatusActive,
		Attributes: datatypes.NewJSONType(model.UserAttribute{
			Email: &req.Email,
		}),
	}
	if err := mgr.db.WithContext(c).Create(&user).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	mgr.respondWithTokens(c, &user)
}

// Login godoc
// @Summary User login
// @Description Verify credentials with the requested auth method and return JWT tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body LoginReq true "login parameters"
// @Success 200 {object} resputil.Response[LoginResp] "JWT tokens"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Failure 401 {object} resputil.Response[any] "invalid credentials"
// @Router /v1/auth/login [post]
func (mgr *AuthMgr) Login(c *gin.Context) {
	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	l := logutils.Log.WithFields(logutils.Fields{
		"username": req.Username,
		"auth":     req.AuthMethod,
	})

	switch req.AuthMethod {
	case AuthMethodLDAP:
		if err := mgr.ldapAuth(req.Username, req.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	case AuthMethodNormal:
		if err := mgr.normalAuth(c, req.Username, req.Password); err != nil {
			l.Error("invalid credentials: ", err)
			resputil.HTTPError(c, http.StatusUnauthorized, "Invalid credentials", resputil.InvalidCredentials)
			return
		}
	default:
		resputil.BadRequestError(c, "Invalid auth method")
		return
	}

	var user model.User
	err := mgr.db.WithContext(c).Where("name = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && req.AuthMethod == AuthMethodLDAP {
		// First LDAP login provisions a local user row.
		user = model.User{Name: req.Username, Role: model.RoleMember, Status: model.StatusActive}
		err = mgr.db.WithContext(c).Create(&user).Error
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if user.Status != model.StatusActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.InvalidCredentials)
		return
	}
	mgr.respondWithTokens(c, &user)
}

// RefreshToken godoc
// @Summary Refresh the token pair
// @Description Exchange a valid refresh token for a new token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param data body RefreshReq true "refresh token"
// @Success 200 {object} resputil.Response[LoginResp] "new JWT tokens"
// @Failure 401 {object} resputil.Response[any] "invalid refresh token"
// @Router /v1/auth/refresh [post]
func (mgr *AuthMgr) RefreshToken(c *gin.Context) {
	var req RefreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token, err := mgr.tokenMgr.CheckToken(req.RefreshToken)
	if err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "Invalid refresh token", resputil.TokenExpired)
		return
	}
	var user model.User
	if err := mgr.db.WithContext(c).First(&user, token.UserID).Error; err != nil {
		resputil.HTTPError(c, http.StatusUnauthorized, "User not found", resputil.TokenInvalid)
		return
	}
	if user.Status != model.StatusActive {
		resputil.HTTPError(c, http.StatusUnauthorized, "User is not active", resputil.InvalidCredentials)
		return
	}
	mgr.respondWithTokens(c, &user)
}

func (mgr *AuthMgr) respondWithTokens(c *gin.Context, user *model.User) {
	jwtMessage := util.JWTMessage{
		UserID:       user.ID,
		Username:     user.Name,
		RolePlatform: user.Role,
	}
	accessToken, refreshToken, err := mgr.tokenMgr.CreateTokens(&jwtMessage)
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, LoginResp{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Context: UserContext{
			UserID:       user.ID,
			Username:     user.Name,
			RolePlatform: user.Role,
		},
	})
}

func (mgr *AuthMgr) normalAuth(c *gin.Context, username, password string) error {
	var user model.User
	if err := mgr.db.WithContext(c).Where("name = ?", username).First(&user).Error; err != nil {
		return err
	}
	if user.Password == nil {
		return errors.New("password login not enabled for this user")
	}
	return bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(password))
}

func (mgr *AuthMgr) ldapAuth(username, password string) error {
	ldapConf := config.GetConfig().Auth.LDAP
	if !ldapConf.Enable {
		return errors.New("ldap auth is disabled")
	}
	conn, err := ldap.DialURL(ldapConf.Address)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err = conn.Bind(ldapConf.UserName, ldapConf.Password); err != nil {
		return err
	}
	searchRequest := ldap.NewSearchRequest(
		ldapConf.SearchDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username)),
		[]string{"dn"},
		nil,
	)
	result, err := conn.Search(searchRequest)
	if err != nil {
		return err
	}
	if len(result.Entries) != 1 {
		return errors.New("user does not exist or too many entries returned")
	}
	return conn.Bind(result.Entries[0].DN, password)
}
