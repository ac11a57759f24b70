package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
)

// ExperienceHandler 负责工作经历的 CRUD 与文档挂载端点。
// 经历下的条目要点由 SnippetHandler 处理。
type ExperienceHandler struct {
	svc *composer.Attachment[database.Experience, database.DocumentExperience]
	*attachmentAPI[database.Experience, database.DocumentExperience]
}

// NewExperienceHandler 构造 ExperienceHandler。
func NewExperienceHandler(comp *composer.Composer) *ExperienceHandler {
	return &ExperienceHandler{
		svc:           comp.Experiences,
		attachmentAPI: newAttachmentAPI(comp.Experiences, func(e *database.Experience) any { return newExperienceResponse(*e) }, "itemID"),
	}
}

type experienceRequest struct {
	Company   string `json:"company" binding:"required,max=255"`
	Title     string `json:"title" binding:"max=255"`
	Location  string `json:"location" binding:"max=255"`
	StartDate string `json:"start_date" binding:"max=32"`
	EndDate   string `json:"end_date" binding:"max=32"`
}

type experienceResponse struct {
	ID        uint   `json:"id"`
	Company   string `json:"company"`
	Title     string `json:"title"`
	Location  string `json:"location"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func newExperienceResponse(e database.Experience) experienceResponse {
	return experienceResponse{
		ID:        e.ID,
		Company:   e.Company,
		Title:     e.Title,
		Location:  e.Location,
		StartDate: e.StartDate,
		EndDate:   e.EndDate,
	}
}

// CreateUnderDocument 在主文档下新建工作经历并挂载到末尾。
func (h *ExperienceHandler) CreateUnderDocument(c *gin.Context) {
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

	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item := database.Experience{
		Company:   req.Company,
		Title:     req.Title,
		Location:  req.Location,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	created, _, err := h.svc.CreateItem(c.Request.Context(), owner, documentID, &item)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExperienceResponse(*created))
}

// ListOwned 列出当前用户的全部工作经历。
func (h *ExperienceHandler) ListOwned(c *gin.Context) {
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
	out := make([]experienceResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newExperienceResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// GetOwned 返回单条工作经历。
func (h *ExperienceHandler) GetOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	item, err := h.svc.Items().GetOwned(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExperienceResponse(*item))
}

// UpdateOwned 覆盖工作经历字段。
func (h *ExperienceHandler) UpdateOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item, err := h.svc.Items().Update(c.Request.Context(), owner, id, map[string]any{
		"company":    req.Company,
		"title":      req.Title,
		"location":   req.Location,
		"start_date": req.StartDate,
		"end_date":   req.EndDate,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExperienceResponse(*item))
}

// DeleteOwned 删除工作经历，幂等；关系行与其下要点随外键级联清理。
func (h *ExperienceHandler) DeleteOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid experience id")
		return
	}

	if err := h.svc.Items().Delete(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
