package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
	"resumely/internal/snippet"
)

// SnippetHandler 负责文本片段的版本化 CRUD 与“文档内某段经历”下的挂载端点。
type SnippetHandler struct {
	flow *composer.SnippetFlow
}

// NewSnippetHandler 构造 SnippetHandler。
func NewSnippetHandler(comp *composer.Composer) *SnippetHandler {
	return &SnippetHandler{flow: comp.Snippets}
}

type createSnippetRequest struct {
	Kind    string `json:"kind" binding:"max=64"`
	Content string `json:"content" binding:"required"`
}

type attachSnippetRequest struct {
	SnippetID uint  `json:"snippet_id" binding:"required"`
	Version   int64 `json:"version" binding:"required"`
}

type reorderSnippetsRequest struct {
	SnippetIDs []uint `json:"snippet_ids" binding:"required"`
}

type updateSnippetRequest struct {
	Kind    *string `json:"kind"`
	Content *string `json:"content"`
}

type snippetResponse struct {
	ID        uint      `json:"id"`
	Version   int64     `json:"version"`
	Parent    *int64    `json:"parent,omitempty"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func newSnippetResponse(s database.TextSnippet) snippetResponse {
	return snippetResponse{
		ID:        s.ID,
		Version:   s.Version,
		Parent:    s.Parent,
		Kind:      s.Kind,
		Content:   s.Content,
		CreatedAt: time.UnixMilli(s.CreatedAt),
	}
}

// CreateUnderExperience 在主文档下的某段经历末尾新建片段（首版本）。
func (h *SnippetHandler) CreateUnderExperience(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}
	experienceID, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	var req createSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	snip, _, err := h.flow.CreateSnippet(c.Request.Context(), owner, documentID, experienceID, req.Kind, req.Content)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSnippetResponse(*snip))
}

// Attach 将已存在的片段版本挂载到某段经历的末尾。
func (h *SnippetHandler) Attach(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}
	experienceID, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	var req attachSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, err := h.flow.AttachSnippet(c.Request.Context(), owner, documentID, experienceID, req.SnippetID, req.Version); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Reorder 整体重排某段经历下的要点。
func (h *SnippetHandler) Reorder(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}
	experienceID, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	var req reorderSnippetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	rows, err := h.flow.ReorderSnippets(c.Request.Context(), owner, documentID, experienceID, req.SnippetIDs)
	if err != nil {
		DomainError(c, err)
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"snippet_id": row.SnippetID,
			"version":    row.SnippetVersion,
			"position":   row.Position,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Detach 从某段经历卸载片段；片段本身保留。幂等。
func (h *SnippetHandler) Detach(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	documentID, err := parseUintParam(c, "id")
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}
	experienceID, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}
	snippetID, err := parseUintParam(c, "snippetID")
	if err != nil {
		BadRequest(c, "invalid snippet id")
		return
	}

	if err := h.flow.DetachSnippet(c.Request.Context(), owner, documentID, experienceID, snippetID); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOwned 列出当前用户的全部片段行（含历史版本）。
func (h *SnippetHandler) ListOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	rows, err := h.flow.Store().ListOwned(c.Request.Context(), owner)
	if err != nil {
		DomainError(c, err)
		return
	}
	out := make([]snippetResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newSnippetResponse(row))
	}
	c.JSON(http.StatusOK, out)
}

// ListVersions 返回某个片段 id 的全部版本，按版本升序。
func (h *SnippetHandler) ListVersions(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "snippetID")
	if err != nil {
		BadRequest(c, "invalid snippet id")
		return
	}

	rows, err := h.flow.Store().Versions(c.Request.Context(), id)
	if err != nil {
		DomainError(c, err)
		return
	}

	out := make([]snippetResponse, 0, len(rows))
	for _, row := range rows {
		if row.Owner != owner {
			Forbidden(c, "snippet belongs to another user")
			return
		}
		out = append(out, newSnippetResponse(row))
	}
	c.JSON(http.StatusOK, out)
}

// GetVersion 返回片段的单个版本。
func (h *SnippetHandler) GetVersion(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "snippetID")
	if err != nil {
		BadRequest(c, "invalid snippet id")
		return
	}
	version, err := parseVersionParam(c)
	if err != nil {
		BadRequest(c, "invalid snippet version")
		return
	}

	snip, err := h.flow.Store().Get(c.Request.Context(), id, version)
	if err != nil {
		DomainError(c, err)
		return
	}
	if snip.Owner != owner {
		Forbidden(c, "snippet belongs to another user")
		return
	}
	c.JSON(http.StatusOK, newSnippetResponse(*snip))
}

// UpdateVersion 基于指定版本派生新版本，并把引用旧版本的关系行整体重指向。
// 响应携带被改写的关系行数，0 表示该版本未被任何文档引用。
func (h *SnippetHandler) UpdateVersion(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "snippetID")
	if err != nil {
		BadRequest(c, "invalid snippet id")
		return
	}
	version, err := parseVersionParam(c)
	if err != nil {
		BadRequest(c, "invalid snippet version")
		return
	}

	var req updateSnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	next, repointed, err := h.flow.UpdateSnippet(c.Request.Context(), owner, id, version, snippet.UpdateProps{
		Kind:    req.Kind,
		Content: req.Content,
	})
	if err != nil {
		DomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"snippet":   newSnippetResponse(*next),
		"repointed": repointed,
	})
}

// DeleteVersion 删除片段的单个版本，幂等。
func (h *SnippetHandler) DeleteVersion(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "snippetID")
	if err != nil {
		BadRequest(c, "invalid snippet id")
		return
	}
	version, err := parseVersionParam(c)
	if err != nil {
		BadRequest(c, "invalid snippet version")
		return
	}

	if err := h.flow.DeleteSnippetVersion(c.Request.Context(), owner, id, version); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseVersionParam(c *gin.Context) (int64, error) {
	value, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return value, nil
}
