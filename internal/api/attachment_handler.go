package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumely/internal/api/middleware"
	"resumely/internal/composer"
)

// attachmentAPI 把一种条目类型的挂载/卸载/重排端点泛型化；
// 条目字段的绑定留给各自的类型化处理器。
type attachmentAPI[I, R any] struct {
	svc      *composer.Attachment[I, R]
	toDTO    func(*I) any
	paramKey string
}

func newAttachmentAPI[I, R any](svc *composer.Attachment[I, R], toDTO func(*I) any, paramKey string) *attachmentAPI[I, R] {
	return &attachmentAPI[I, R]{svc: svc, toDTO: toDTO, paramKey: paramKey}
}

type attachRequest struct {
	ItemID uint `json:"item_id" binding:"required"`
}

type reorderRequest struct {
	ItemIDs []uint `json:"item_ids" binding:"required"`
}

// List 返回文档下的条目，按位置升序。
func (h *attachmentAPI[I, R]) List(c *gin.Context) {
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

	items, err := h.svc.Attached(c.Request.Context(), owner, documentID)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dtoList(items))
}

// Attach 将已存在的条目挂载到文档末尾。
func (h *attachmentAPI[I, R]) Attach(c *gin.Context) {
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

	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, err := h.svc.AttachExisting(c.Request.Context(), owner, documentID, req.ItemID); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Reorder 整体重排文档下的条目，返回新顺序的条目列表。
func (h *attachmentAPI[I, R]) Reorder(c *gin.Context) {
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

	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	items, err := h.svc.Reorder(c.Request.Context(), owner, documentID, req.ItemIDs)
	if err != nil {
		DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.dtoList(items))
}

type moveRequest struct {
	// 指针以区分“缺字段”和位置 0；负数由服务层拒绝。
	Position *int `json:"position" binding:"required"`
}

// Move 单行调整条目位置；整体重排走 Reorder。
func (h *attachmentAPI[I, R]) Move(c *gin.Context) {
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
	itemID, err := parseUintParam(c, h.paramKey)
	if err != nil {
		BadRequest(c, "invalid item id")
		return
	}

	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, err := h.svc.MoveItem(c.Request.Context(), owner, documentID, itemID, *req.Position); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Detach 从文档卸载条目，幂等。
func (h *attachmentAPI[I, R]) Detach(c *gin.Context) {
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
	itemID, err := parseUintParam(c, h.paramKey)
	if err != nil {
		BadRequest(c, "invalid item id")
		return
	}

	if err := h.svc.Detach(c.Request.Context(), owner, documentID, itemID); err != nil {
		DomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *attachmentAPI[I, R]) dtoList(items []I) []any {
	out := make([]any, 0, len(items))
	for i := range items {
		out = append(out, h.toDTO(&items[i]))
	}
	return out
}
