package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumely/internal/api/middleware"
	"resumely/internal/database"
)

// ContactHandler 维护用户的联系方式，每个用户至多一条。
type ContactHandler struct {
	db *gorm.DB
}

// NewContactHandler 构造 ContactHandler。
func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

type contactRequest struct {
	Email    string `json:"email" binding:"max=255"`
	Phone    string `json:"phone" binding:"max=64"`
	Location string `json:"location" binding:"max=255"`
	Website  string `json:"website" binding:"max=512"`
}

type contactResponse struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website"`
}

// GetContact 返回当前用户的联系方式。
func (h *ContactHandler) GetContact(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var contact database.ContactInfo
	err := h.db.WithContext(c.Request.Context()).Where("owner = ?", owner).Take(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "contact info not found")
			return
		}
		Internal(c, "failed to query contact info")
		return
	}

	c.JSON(http.StatusOK, contactResponse{
		Email:    contact.Email,
		Phone:    contact.Phone,
		Location: contact.Location,
		Website:  contact.Website,
	})
}

// PutContact 建立或覆盖当前用户的联系方式。
func (h *ContactHandler) PutContact(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var contact database.ContactInfo
	err := h.db.WithContext(ctx).Where("owner = ?", owner).Take(&contact).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		contact = database.ContactInfo{
			Owner:    owner,
			Email:    req.Email,
			Phone:    req.Phone,
			Location: req.Location,
			Website:  req.Website,
		}
		if err := h.db.WithContext(ctx).Create(&contact).Error; err != nil {
			Internal(c, "failed to create contact info")
			return
		}
	case err != nil:
		Internal(c, "failed to query contact info")
		return
	default:
		updates := map[string]any{
			"email":    req.Email,
			"phone":    req.Phone,
			"location": req.Location,
			"website":  req.Website,
		}
		if err := h.db.WithContext(ctx).Model(&contact).Updates(updates).Error; err != nil {
			Internal(c, "failed to update contact info")
			return
		}
	}

	c.JSON(http.StatusOK, contactResponse{
		Email:    req.Email,
		Phone:    req.Phone,
		Location: req.Location,
		Website:  req.Website,
	})
}

// DeleteContact 删除当前用户的联系方式，幂等。
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	owner, ok := middleware.UsernameFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	err := h.db.WithContext(c.Request.Context()).
		Unscoped().
		Where("owner = ?", owner).
		Delete(&database.ContactInfo{}).Error
	if err != nil {
		Internal(c, "failed to delete contact info")
		return
	}
	c.Status(http.StatusNoContent)
}
