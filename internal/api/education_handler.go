package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
)

// EducationHandler 负责教育经历的 CRUD 与文档挂载端点。
type EducationHandler struct {
	svc *composer.Attachment[database.Education, database.DocumentEducation]
	*attachmentAPI[database.Education, database.DocumentEducation]
}

// NewEducationHandler 构造 EducationHandler。
func NewEducationHandler(comp *composer.Composer) *EducationHandler {
	return &EducationHandler{
		svc:           comp.Educations,
		attachmentAPI: newAttachmentAPI(comp.Educations, func(e *database.Education) any { return newEducationResponse(*e) }, "itemID"),
	}
}

type educationRequest struct {
	School    string `json:"school" binding:"required,max=255"`
	Degree    string `json:"degree" binding:"max=255"`
	Field     string `json:"field" binding:"max=255"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

type educationResponse struct {
	ID        uint   `json:"id"`
	School    string `json:"school"`
	Degree    string `json:"degree"`
	Field     string `json:"field"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

func newEducationResponse(e database.Education) educationResponse {
	return educationResponse{
		ID:        e.ID,
		School:    e.School,
		Degree:    e.Degree,
		Field:     e.Field,
		StartYear: e.StartYear,
		EndYear:   e.EndYear,
	}
}

// CreateUnderDocument 在主文档下新建教育经历并挂载到末尾。
func (h *EducationHandler) CreateUnderDocument(c *gin.Context) {
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

	var req educationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item := database.Education{
		School:    req.School,
		Degree:    req.Degree,
		Field:     req.Field,
		StartYear: req.StartYear,
		EndYear:   req.EndYear,
	}
	created, _, err := h.svc.CreateItem(c.Request.Context(), owner, documentID, &item)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newEducationResponse(*created))
}

// ListOwned 列出当前用户的全部教育经历。
func (h *EducationHandler) ListOwned(c *gin.Context) {
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
	out := make([]educationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newEducationResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// GetOwned 返回单条教育经历。
func (h *EducationHandler) GetOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid education id")
		return
	}

	item, err := h.svc.Items().GetOwned(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEducationResponse(*item))
}

// UpdateOwned 覆盖教育经历字段。
func (h *EducationHandler) UpdateOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid education id")
		return
	}

	var req educationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item, err := h.svc.Items().Update(c.Request.Context(), owner, id, map[string]any{
		"school":     req.School,
		"degree":     req.Degree,
		"field":      req.Field,
		"start_year": req.StartYear,
		"end_year":   req.EndYear,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEducationResponse(*item))
}

// DeleteOwned 删除教育经历，幂等；关系行随外键级联清理。
func (h *EducationHandler) DeleteOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid education id")
		return
	}

	if err := h.svc.Items().Delete(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
