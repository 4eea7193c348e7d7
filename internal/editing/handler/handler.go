package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ucouncil/portal/backend/go-services/internal/editing"
	"github.com/ucouncil/portal/backend/go-services/pkg/logger"
	"github.com/ucouncil/portal/backend/go-services/pkg/middleware"
)

type leaseRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	UserID     string `json:"userId"`
}

type saveRequest struct {
	DocumentID string                 `json:"documentId" binding:"required"`
	UserID     string                 `json:"userId"`
	Version    *int64                 `json:"version" binding:"required,min=1"`
	Fields     map[string]interface{} `json:"fields"`
}

type createRequest struct {
	UserID string                 `json:"userId"`
	Fields map[string]interface{} `json:"fields"`
}

type reviewRequest struct {
	DocumentID string `json:"documentId" binding:"required"`
	Status     string `json:"status" binding:"required"`
}

// RegisterRoutes mounts one route group per coordinator under rg, e.g.
// /api/v1/memorandums/acquire-priority.
func RegisterRoutes(rg *gin.RouterGroup, coords ...*editing.Coordinator) {
	for _, co := range coords {
		h := &kindHandler{co: co}
		g := rg.Group("/" + co.Kind().RoutePath())
		g.GET("", h.list)
		g.POST("", h.create)
		g.GET("/:id", h.get)
		g.POST("/acquire-priority", h.acquire)
		g.POST("/clear-priority", h.release)
		g.POST("/save", h.save)
		g.POST("/review", h.review)
	}
}

type kindHandler struct {
	co *editing.Coordinator
}

func (h *kindHandler) list(c *gin.Context) {
	docs, err := h.co.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *kindHandler) get(c *gin.Context) {
	d, err := h.co.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *kindHandler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, ok := callerID(c, req.UserID)
	if !ok {
		return
	}
	d, err := h.co.Create(c.Request.Context(), user, req.Fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": d})
}

func (h *kindHandler) acquire(c *gin.Context) {
	var req leaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, ok := callerID(c, req.UserID)
	if !ok {
		return
	}
	res, err := h.co.Acquire(c.Request.Context(), req.DocumentID, user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *kindHandler) release(c *gin.Context) {
	var req leaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, ok := callerID(c, req.UserID)
	if !ok {
		return
	}
	if err := h.co.Release(c.Request.Context(), req.DocumentID, user); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *kindHandler) save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, ok := callerID(c, req.UserID)
	if !ok {
		return
	}
	d, err := h.co.Save(c.Request.Context(), req.DocumentID, user, *req.Version, req.Fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": d})
}

func (h *kindHandler) review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	d, err := h.co.Review(c.Request.Context(), req.DocumentID, editing.Status(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": d})
}

// callerID picks the acting user. An authenticated subject always wins; a
// body userId that names someone else is refused.
func callerID(c *gin.Context, bodyUser string) (string, bool) {
	if sub := middleware.Subject(c); sub != "" {
		if bodyUser != "" && bodyUser != sub {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody(c, "FORBIDDEN", "userId does not match authenticated user"))
			return "", false
		}
		return sub, true
	}
	if bodyUser == "" {
		badRequest(c, "userId is required")
		return "", false
	}
	return bodyUser, true
}

func errorBody(c *gin.Context, code, msg string) gin.H {
	return gin.H{"error": msg, "code": code, "requestId": middleware.RequestIDFrom(c)}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(c, "BAD_REQUEST", msg))
}

func writeError(c *gin.Context, err error) {
	var npe *editing.NoEditPriorityError
	var vce *editing.VersionConflictError
	switch {
	case errors.As(err, &npe):
		body := errorBody(c, "NO_EDIT_PRIORITY", npe.Error())
		if npe.Holder != "" {
			body["priorityEditor"] = npe.Holder
			body["priorityEditorName"] = npe.HolderName
			body["priorityEditStartedAt"] = npe.Since
		}
		c.AbortWithStatusJSON(http.StatusForbidden, body)
	case errors.As(err, &vce):
		body := errorBody(c, "VERSION_CONFLICT", editing.ErrVersionConflict.Error())
		body["currentVersion"] = vce.Current
		c.AbortWithStatusJSON(http.StatusConflict, body)
	case errors.Is(err, editing.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody(c, "NOT_FOUND", "not found"))
	case errors.Is(err, editing.ErrInvalidFields), errors.Is(err, editing.ErrInvalidStatus):
		badRequest(c, err.Error())
	default:
		logger.Errorf("request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "INTERNAL_ERROR", "internal server error"))
	}
}
