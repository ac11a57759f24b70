package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
	"resumely/internal/document"
	"resumely/internal/tasks"
)

var errInvalidID = errors.New("invalid id")

// DocumentHandler 负责处理与文档相关的 API 请求。
type DocumentHandler struct {
	composer    *composer.Composer
	asynqClient *asynq.Client
	storage     PresignStorage
}

// NewDocumentHandler 构造 DocumentHandler。
func NewDocumentHandler(comp *composer.Composer, asynqClient *asynq.Client, storage PresignStorage) *DocumentHandler {
	return &DocumentHandler{
		composer:    comp,
		asynqClient: asynqClient,
		storage:     storage,
	}
}

type createDocumentRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

type updateDocumentRequest struct {
	Name     *string `json:"name"`
	IsLocked *bool   `json:"is_locked"`
}

type documentResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	IsMaster   bool      `json:"is_master"`
	IsTemplate bool      `json:"is_template"`
	IsLocked   bool      `json:"is_locked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newDocumentResponse(doc database.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		Name:       doc.Name,
		IsMaster:   doc.IsMaster,
		IsTemplate: doc.IsTemplate,
		IsLocked:   doc.IsLocked,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// ListDocuments 列出用户全部文档，主文档在前。
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.composer.Docs.List(c.Request.Context(), owner)
	if err != nil {
		DomainError(c, err)
		return
	}

	items := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, newDocumentResponse(d))
	}
	c.JSON(http.StatusOK, items)
}

// CreateDocument 创建一份模板文档；主文档只在注册时创建。
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.composer.Docs.CreateTemplate(c.Request.Context(), owner, req.Name)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDocumentResponse(*doc))
}

// GetDocument 返回指定文档。
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	doc, err := h.composer.Docs.Get(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(*doc))
}

// GetComposedDocument 返回文档的完整内容视图，所有层级按位置排序。
func (h *DocumentHandler) GetComposedDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	ctx := c.Request.Context()
	// 组装查询本身不校验属主，先走属主校验再组装。
	if _, err := h.composer.Docs.Get(ctx, owner, id); err != nil {
		DomainError(c, err)
		return
	}

	view, err := h.composer.Compose(ctx, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateDocument 修改文档；主文档只接受改名。
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, err := h.composer.Docs.Update(c.Request.Context(), owner, id, document.UpdateProps{
		Name:     req.Name,
		IsLocked: req.IsLocked,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentResponse(*doc))
}

// DeleteDocument 删除非主文档。
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	if err := h.composer.Docs.Delete(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportDocument 将导出任务入队并立即返回 202。
func (h *DocumentHandler) ExportDocument(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	if _, err := h.composer.Docs.Get(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewDocumentExportTask(id, owner, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue document export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "document export request accepted",
		"task_id": info.ID,
	})
}

// GetExportLink 生成最近一次导出快照的预签名下载链接。
func (h *DocumentHandler) GetExportLink(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}

	doc, err := h.composer.Docs.Get(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}

	if doc.ExportObjectKey == "" {
		Conflict(c, "export not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), doc.ExportObjectKey, 5*time.Minute)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return uint(value), nil
}
