package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skandula/docsim-server/internal/apperr"
	"github.com/skandula/docsim-server/internal/models"
	"github.com/skandula/docsim-server/internal/service"
	"github.com/skandula/docsim-server/internal/utils"
)

// Handler holds the API handlers
type Handler struct {
	svc            service.Service
	logger         *utils.Logger
	maxUploadBytes int64
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, logger *utils.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		svc:            svc,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
	}

	authed := router.Group("/api", AuthMiddleware())
	{
		authed.GET("/documents", h.listDocuments)
		authed.POST("/documents/upload", h.uploadDocument)
		authed.GET("/documents/:id", h.viewDocument)
		authed.GET("/documents/:id/download", h.downloadDocument)

		authed.GET("/credits", h.getCredits)
		authed.POST("/credits/request", h.requestCredits)

		authed.GET("/activity", h.listActivity)
		authed.GET("/activity/export", h.exportActivity)
	}

	admin := router.Group("/api/admin", AuthMiddleware(), AdminMiddleware())
	{
		admin.GET("/credit-requests", h.listPendingRequests)
		admin.POST("/credit-requests/:id", h.resolveCreditRequest)
		admin.GET("/users", h.listUsers)
		admin.POST("/users/promote", h.promoteUser)
		admin.GET("/analytics", h.getAnalytics)
	}
}

// Authentication handlers
func (h *Handler) register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("All fields are required"))
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Username and password are required"))
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Document handlers
func (h *Handler) uploadDocument(c *gin.Context) {
	userID := c.GetInt64("userId")

	fileHeader, err := c.FormFile("document")
	if err != nil {
		h.respondError(c, apperr.Validation("No file uploaded"))
		return
	}

	if ct := fileHeader.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/plain") {
		h.respondError(c, apperr.Validation("Only plain text documents are allowed"))
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		h.respondError(c, apperr.Validation("File exceeds the maximum allowed size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, apperr.Storage("Failed to read uploaded file", err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.respondError(c, apperr.Storage("Failed to read uploaded file", err))
		return
	}

	resp, err := h.svc.UploadDocument(c.Request.Context(), userID, fileHeader.Filename, content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listDocuments(c *gin.Context) {
	userID := c.GetInt64("userId")

	docs, err := h.svc.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) viewDocument(c *gin.Context) {
	userID := c.GetInt64("userId")
	role := c.GetString("role")

	documentID, err := parseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	doc, err := h.svc.ViewDocument(c.Request.Context(), userID, role, documentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) downloadDocument(c *gin.Context) {
	userID := c.GetInt64("userId")

	documentID, err := parseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	doc, err := h.svc.DownloadDocument(c.Request.Context(), userID, documentID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.FileAttachment(doc.FilePath, doc.Filename)
}

// Credit handlers
func (h *Handler) getCredits(c *gin.Context) {
	userID := c.GetInt64("userId")

	credits, err := h.svc.GetCredits(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CreditsResponse{Credits: credits})
}

func (h *Handler) requestCredits(c *gin.Context) {
	userID := c.GetInt64("userId")

	var req models.CreditRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Invalid credit amount requested"))
		return
	}

	requestID, err := h.svc.SubmitCreditRequest(c.Request.Context(), userID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CreditRequestResponse{
		Status:    "success",
		RequestID: requestID,
	})
}

// Activity handlers
func (h *Handler) listActivity(c *gin.Context) {
	userID := c.GetInt64("userId")

	entries, err := h.svc.ListActivity(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

func (h *Handler) exportActivity(c *gin.Context) {
	userID := c.GetInt64("userId")

	report, err := h.svc.ExportActivity(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename=activity-report.txt`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
}

// Admin handlers
func (h *Handler) listPendingRequests(c *gin.Context) {
	requests, err := h.svc.ListPendingRequests(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) resolveCreditRequest(c *gin.Context) {
	requestID, err := parseID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req models.ResolveRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Invalid status"))
		return
	}

	if err := h.svc.ResolveCreditRequest(c.Request.Context(), requestID, req.Status, req.Amount); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "Credit request " + req.Status,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) promoteUser(c *gin.Context) {
	var req models.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.Validation("Email is required"))
		return
	}

	if err := h.svc.PromoteUser(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MessageResponse{
		Status:  "success",
		Message: "User promoted to admin successfully",
	})
}

func (h *Handler) getAnalytics(c *gin.Context) {
	analytics, err := h.svc.GetAnalytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analytics": analytics})
}

// Helpers
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("Invalid id")
	}
	return id, nil
}

// respondError maps an application error onto the uniform error body. System
// faults keep their cause in the operator log only.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Err != nil {
		h.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
	}

	c.JSON(appErr.HTTPStatus(), models.ErrorResponse{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}
