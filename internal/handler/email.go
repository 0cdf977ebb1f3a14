package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/raids-lab/teamspace/dao/model"
	"github.com/raids-lab/teamspace/internal/resputil"
	"github.com/raids-lab/teamspace/internal/util"
	"github.com/raids-lab/teamspace/pkg/classify"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewEmailMgr)
}

// EmailMgr holds the inbox triage surface: ingested emails are stored
// unclassified, and classification is an explicit per-message call to the
// external service that can only ever degrade to the fallback category.
type EmailMgr struct {
	name       string
	db         *gorm.DB
	classifier *classify.Client
}

func NewEmailMgr(conf *RegisterConfig) Manager {
	return &EmailMgr{
		name:       "emails",
		db:         conf.DB,
		classifier: conf.Classifier,
	}
}

func (mgr *EmailMgr) GetName() string { return mgr.name }

func (mgr *EmailMgr) RegisterPublic(_ *gin.RouterGroup) {}

func (mgr *EmailMgr) RegisterProtected(g *gin.RouterGroup) {
	g.GET("", mgr.List)
	g.POST("", mgr.Ingest)
	g.POST("/:eid/classify", mgr.Classify)
}

func (mgr *EmailMgr) RegisterAdmin(_ *gin.RouterGroup) {}

type (
	EmailIDReq struct {
		EmailID uint `uri:"eid" binding:"required"`
	}

	EmailIngestReq struct {
		FromAddr string  `json:"from" binding:"required,email"`
		Subject  string  `json:"subject" binding:"required"`
		Snippet  string  `json:"snippet"`
		Body     *string `json:"body"`
	}

	EmailResp struct {
		ID           uint       `json:"id"`
		FromAddr     string     `json:"from"`
		Subject      string     `json:"subject"`
		Snippet      string     `json:"snippet,omitempty"`
		Category     *string    `json:"category,omitempty"`
		Confidence   *float64   `json:"confidence,omitempty"`
		Reasoning    *string    `json:"reasoning,omitempty"`
		ClassifiedAt *time.Time `json:"classifiedAt,omitempty"`
		CreatedAt    time.Time  `json:"createdAt"`
	}

	EmailListReq struct {
		Limit    int     `form:"limit"`
		Category *string `form:"category"`
	}
)

func toEmailResp(e *model.EmailMessage) EmailResp {
	return EmailResp{
		ID: e.ID, FromAddr: e.FromAddr, Subject: e.Subject, Snippet: e.Snippet,
		Category: e.Category, Confidence: e.Confidence, Reasoning: e.Reasoning,
		ClassifiedAt: e.ClassifiedAt, CreatedAt: e.CreatedAt,
	}
}

// List godoc
// @Summary List the current user's ingested emails, newest first
// @Description Optional ?category= filter; limit defaults to 20 and caps at 100
// @Tags Email
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[[]EmailResp] "emails"
// @Router /v1/emails [get]
func (mgr *EmailMgr) List(c *gin.Context) {
	token := util.GetToken(c)

	var req EmailListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	q := mgr.db.WithContext(c).Where("user_id = ?", token.UserID)
	if req.Category != nil {
		q = q.Where("category = ?", *req.Category)
	}
	var emails []model.EmailMessage
	if err := q.Order("id DESC").
		Limit(sanitizeLimit(req.Limit)).
		Find(&emails).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, lo.Map(emails, func(e model.EmailMessage, _ int) EmailResp {
		return toEmailResp(&e)
	}))
}

// Ingest godoc
// @Summary Store an email for triage
// @Description Classification fields stay empty until /classify is called
// @Tags Email
// @Accept json
// @Produce json
// @Security Bearer
// @Param data body EmailIngestReq true "email content"
// @Success 200 {object} resputil.Response[EmailResp] "stored email"
// @Failure 400 {object} resputil.Response[any] "request parameter error"
// @Router /v1/emails [post]
func (mgr *EmailMgr) Ingest(c *gin.Context) {
	token := util.GetToken(c)

	var req EmailIngestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}

	email := model.EmailMessage{
		UserID:   token.UserID,
		FromAddr: req.FromAddr,
		Subject:  req.Subject,
		Snippet:  req.Snippet,
		Body:     req.Body,
	}
	if err := mgr.db.WithContext(c).Create(&email).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toEmailResp(&email))
}

// Classify godoc
// @Summary Classify one email with the external triage service
// @Description Idempotent: a classified email returns the stored result without another call. Service failures store the fallback category instead of erroring.
// @Tags Email
// @Produce json
// @Security Bearer
// @Success 200 {object} resputil.Response[EmailResp] "email with classification"
// @Failure 404 {object} resputil.Response[any] "email not found"
// @Router /v1/emails/{eid}/classify [post]
func (mgr *EmailMgr) Classify(c *gin.Context) {
	var uriReq EmailIDReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		resputil.BadRequestError(c, err.Error())
		return
	}
	token := util.GetToken(c)

	var email model.EmailMessage
	err := mgr.db.WithContext(c).
		Where("id = ? AND user_id = ?", uriReq.EmailID, token.UserID).
		First(&email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		resputil.NotFoundError(c, "Email not found")
		return
	}
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	if email.ClassifiedAt != nil {
		resputil.Success(c, toEmailResp(&email))
		return
	}

	body := email.Snippet
	if email.Body != nil {
		body = *email.Body
	}
	result := mgr.classifier.Classify(c, email.Subject, body)

	now := time.Now()
	email.Category = &result.Category
	email.Confidence = &result.Confidence
	email.Reasoning = &result.Reasoning
	email.ClassifiedAt = &now
	if err := mgr.db.WithContext(c).Model(&email).Updates(map[string]any{
		"category":      result.Category,
		"confidence":    result.Confidence,
		"reasoning":     result.Reasoning,
		"classified_at": now,
	}).Error; err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}
	resputil.Success(c, toEmailResp(&email))
}
