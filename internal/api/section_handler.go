package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
)

// SectionHandler 负责段落的 CRUD 与文档挂载端点。
type SectionHandler struct {
	svc *composer.Attachment[database.Section, database.DocumentSection]
	*attachmentAPI[database.Section, database.DocumentSection]
}

// NewSectionHandler 构造 SectionHandler。
func NewSectionHandler(comp *composer.Composer) *SectionHandler {
	return &SectionHandler{
		svc:           comp.Sections,
		attachmentAPI: newAttachmentAPI(comp.Sections, func(s *database.Section) any { return newSectionResponse(*s) }, "itemID"),
	}
}

type sectionRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content"`
}

type sectionResponse struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func newSectionResponse(s database.Section) sectionResponse {
	return sectionResponse{ID: s.ID, Title: s.Title, Content: s.Content}
}

// CreateUnderDocument 在主文档下新建段落并挂载到末尾。
func (h *SectionHandler) CreateUnderDocument(c *gin.Context) {
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

	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item := database.Section{Title: req.Title, Content: req.Content}
	created, _, err := h.svc.CreateItem(c.Request.Context(), owner, documentID, &item)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSectionResponse(*created))
}

// ListOwned 列出当前用户的全部段落。
func (h *SectionHandler) ListOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	items, err := h.svc.Items().ListOwned(c.Request.Context(), owner)
	if err != nil {
		DomainError(c, err)
		return
	}
	out := make([]sectionResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newSectionResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// GetOwned 返回单个段落。
func (h *SectionHandler) GetOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid section id")
		return
	}

	item, err := h.svc.Items().GetOwned(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSectionResponse(*item))
}

// UpdateOwned 覆盖段落字段。
func (h *SectionHandler) UpdateOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid section id")
		return
	}

	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item, err := h.svc.Items().Update(c.Request.Context(), owner, id, map[string]any{
		"title":   req.Title,
		"content": req.Content,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSectionResponse(*item))
}

// DeleteOwned 删除段落，幂等；关系行随外键级联清理。
func (h *SectionHandler) DeleteOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid section id")
		return
	}

	if err := h.svc.Items().Delete(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
