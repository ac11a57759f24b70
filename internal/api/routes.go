package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumely/internal/api/middleware"
	"resumely/internal/auth"
	"resumely/internal/composer"
	"resumely/internal/config"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	comp *composer.Composer,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient PresignStorage,
) {
	authHandler := NewAuthHandler(
		db,
		comp.Docs,
		authService,
		redisClient,
		logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		time.Duration(cfg.Auth.LoginLockTTLMinutes)*time.Minute,
	)
	documentHandler := NewDocumentHandler(comp, asynqClient, storageClient)
	contactHandler := NewContactHandler(db)
	sectionHandler := NewSectionHandler(comp)
	educationHandler := NewEducationHandler(comp)
	experienceHandler := NewExperienceHandler(comp)
	skillHandler := NewSkillHandler(comp)
	snippetHandler := NewSnippetHandler(comp)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.Origins())
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		contactGroup := v1.Group("/contact")
		contactGroup.Use(authMiddleware)
		{
			contactGroup.GET("", contactHandler.GetContact)
			contactGroup.PUT("", contactHandler.PutContact)
			contactGroup.DELETE("", contactHandler.DeleteContact)
		}

		docGroup := v1.Group("/documents")
		docGroup.Use(authMiddleware)
		{
			docGroup.GET("", documentHandler.ListDocuments)
			docGroup.POST("", documentHandler.CreateDocument)
			docGroup.GET("/:id", documentHandler.GetDocument)
			docGroup.GET("/:id/composed", documentHandler.GetComposedDocument)
			docGroup.PATCH("/:id", documentHandler.UpdateDocument)
			docGroup.DELETE("/:id", documentHandler.DeleteDocument)
			docGroup.POST("/:id/export", documentHandler.ExportDocument)
			docGroup.GET("/:id/export-link", documentHandler.GetExportLink)

			registerAttachmentRoutes(docGroup, "sections", sectionHandler.CreateUnderDocument, sectionHandler.attachmentAPI)
			registerAttachmentRoutes(docGroup, "educations", educationHandler.CreateUnderDocument, educationHandler.attachmentAPI)
			registerAttachmentRoutes(docGroup, "experiences", experienceHandler.CreateUnderDocument, experienceHandler.attachmentAPI)
			registerAttachmentRoutes(docGroup, "skills", skillHandler.CreateUnderDocument, skillHandler.attachmentAPI)

			expGroup := docGroup.Group("/:id/experiences/:itemID/snippets")
			{
				expGroup.POST("", snippetHandler.CreateUnderExperience)
				expGroup.POST("/attach", snippetHandler.Attach)
				expGroup.PUT("/order", snippetHandler.Reorder)
				expGroup.DELETE("/:snippetID", snippetHandler.Detach)
			}
		}

		registerItemRoutes(v1, authMiddleware, "sections", sectionHandler.ListOwned, sectionHandler.GetOwned, sectionHandler.UpdateOwned, sectionHandler.DeleteOwned)
		registerItemRoutes(v1, authMiddleware, "educations", educationHandler.ListOwned, educationHandler.GetOwned, educationHandler.UpdateOwned, educationHandler.DeleteOwned)
		registerItemRoutes(v1, authMiddleware, "experiences", experienceHandler.ListOwned, experienceHandler.GetOwned, experienceHandler.UpdateOwned, experienceHandler.DeleteOwned)
		registerItemRoutes(v1, authMiddleware, "skills", skillHandler.ListOwned, skillHandler.GetOwned, skillHandler.UpdateOwned, skillHandler.DeleteOwned)

		snippetGroup := v1.Group("/snippets")
		snippetGroup.Use(authMiddleware)
		{
			snippetGroup.GET("", snippetHandler.ListOwned)
			snippetGroup.GET("/:snippetID/versions", snippetHandler.ListVersions)
			snippetGroup.GET("/:snippetID/versions/:version", snippetHandler.GetVersion)
			snippetGroup.POST("/:snippetID/versions/:version", snippetHandler.UpdateVersion)
			snippetGroup.DELETE("/:snippetID/versions/:version", snippetHandler.DeleteVersion)
		}
	}
}

// registerAttachmentRoutes 为某类条目注册文档级子路由：新建、列表、挂载、重排、卸载。
func registerAttachmentRoutes[I, R any](docGroup *gin.RouterGroup, kind string, create gin.HandlerFunc, attachAPI *attachmentAPI[I, R]) {
	group := docGroup.Group("/:id/" + kind)
	{
		group.POST("", create)
		group.GET("", attachAPI.List)
		group.POST("/attach", attachAPI.Attach)
		group.PUT("/order", attachAPI.Reorder)
		group.PUT("/:itemID/position", attachAPI.Move)
		group.DELETE("/:itemID", attachAPI.Detach)
	}
}

// registerItemRoutes 为某类条目注册属主级 CRUD 路由。
func registerItemRoutes(
	v1 *gin.RouterGroup,
	authMiddleware gin.HandlerFunc,
	kind string,
	list, get, update, del gin.HandlerFunc,
) {
	group := v1.Group("/" + kind)
	group.Use(authMiddleware)
	{
		group.GET("", list)
		group.GET("/:itemID", get)
		group.PUT("/:itemID", update)
		group.DELETE("/:itemID", del)
	}
}
