package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
	"resumely/internal/database"
)

// SkillHandler 负责技能的 CRUD 与文档挂载端点。
type SkillHandler struct {
	svc *composer.Attachment[database.Skill, database.DocumentSkill]
	*attachmentAPI[database.Skill, database.DocumentSkill]
}

// NewSkillHandler 构造 SkillHandler。
func NewSkillHandler(comp *composer.Composer) *SkillHandler {
	return &SkillHandler{
		svc:           comp.Skills,
		attachmentAPI: newAttachmentAPI(comp.Skills, func(s *database.Skill) any { return newSkillResponse(*s) }, "itemID"),
	}
}

type skillRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Level string `json:"level" binding:"max=64"`
}

type skillResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level"`
}

func newSkillResponse(s database.Skill) skillResponse {
	return skillResponse{ID: s.ID, Name: s.Name, Level: s.Level}
}

// CreateUnderDocument 在主文档下新建技能并挂载到末尾。
func (h *SkillHandler) CreateUnderDocument(c *gin.Context) {
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

	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item := database.Skill{Name: req.Name, Level: req.Level}
	created, _, err := h.svc.CreateItem(c.Request.Context(), owner, documentID, &item)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSkillResponse(*created))
}

// ListOwned 列出当前用户的全部技能。
func (h *SkillHandler) ListOwned(c *gin.Context) {
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
	out := make([]skillResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newSkillResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

// GetOwned 返回单项技能。
func (h *SkillHandler) GetOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid skill id")
		return
	}

	item, err := h.svc.Items().GetOwned(c.Request.Context(), owner, id)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSkillResponse(*item))
}

// UpdateOwned 覆盖技能字段。
func (h *SkillHandler) UpdateOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid skill id")
		return
	}

	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	item, err := h.svc.Items().Update(c.Request.Context(), owner, id, map[string]any{
		"name":  req.Name,
		"level": req.Level,
	})
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSkillResponse(*item))
}

// DeleteOwned 删除技能，幂等；关系行随外键级联清理。
func (h *SkillHandler) DeleteOwned(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, err := parseUintParam(c, "itemID")
	if err != nil {
		BadRequest(c, "invalid skill id")
		return
	}

	if err := h.svc.Items().Delete(c.Request.Context(), owner, id); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
