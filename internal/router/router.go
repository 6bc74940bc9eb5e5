package router

import (
	"net/http"
	"time"

	"Lens_Community/internal/config"
	"Lens_Community/internal/handler"
	"Lens_Community/internal/middleware"
	rcache "Lens_Community/internal/repository/redis"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps 组装路由所需的全部依赖
type Deps struct {
	Config        *config.Config
	Log           *zap.Logger
	DB            *gorm.DB
	RateLimits    *rcache.RateLimitRepository // nil 时不限流
	Users         *service.UserService
	Follows       *service.FollowService
	Photos        *service.PhotoService
	Collections   *service.CollectionService
	Notifications *service.NotificationService
	Admin         *service.AdminService
}

func New(d Deps) *gin.Engine {
	if d.Config.Server.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.SetupValidator()

	r := gin.New()
	r.MaxMultipartMemory = d.Config.Server.MaxUploadMB << 20
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log), middleware.Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		if d.DB != nil {
			if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", d.Config.Server.UploadDir)

	cookie := d.Config.Auth.CookieName
	auth := middleware.AuthMiddleware(d.Users, cookie)
	optional := middleware.OptionalAuth(d.Users, cookie)
	limits := d.Config.RateLimit

	user := handler.NewUserHandler(d.Users, d.Config.Auth)
	follow := handler.NewFollowHandler(d.Follows)
	photo := handler.NewPhotoHandler(d.Photos)
	collection := handler.NewCollectionHandler(d.Collections)
	notification := handler.NewNotificationHandler(d.Notifications)
	admin := handler.NewAdminHandler(d.Admin)

	api := r.Group("/api")

	// 认证相关接口
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", user.Register)
		authGroup.POST("/login",
			middleware.RateLimit(d.RateLimits, "login", limits.LoginPerMinute, time.Minute, middleware.ByIP, d.Log),
			user.Login)
		authGroup.POST("/logout", user.Logout)
		authGroup.GET("/me", auth, user.Me)
		authGroup.POST("/change-password", auth, user.ChangePassword)
	}

	// 用户相关接口
	userGroup := api.Group("/users")
	{
		userGroup.PUT("/me", auth, user.UpdateProfile)
		userGroup.GET("/me/saved", auth, photo.Saved)
		userGroup.GET("/:id", user.Profile)
		userGroup.GET("/:id/follow", auth, follow.Relation)
		userGroup.POST("/:id/follow", auth, follow.Toggle)
		userGroup.GET("/:id/followers", follow.ListFollowers)
		userGroup.GET("/:id/followings", follow.ListFollowings)
		userGroup.GET("/:id/collections", optional, collection.UserCollections)
	}

	// 照片相关接口
	photoGroup := api.Group("/photos")
	{
		photoGroup.GET("", optional, photo.List)
		photoGroup.POST("", auth, photo.Upload)
		photoGroup.GET("/:id", optional, photo.Get)
		photoGroup.PUT("/:id", auth, photo.Update)
		photoGroup.DELETE("/:id", auth, photo.Delete)
		photoGroup.POST("/:id/publish", auth, photo.Publish)
		photoGroup.POST("/:id/like", auth, photo.ToggleLike)
		photoGroup.POST("/:id/save", auth, photo.ToggleSave)
		photoGroup.POST("/:id/view", optional, photo.View)
		photoGroup.POST("/:id/download", optional, photo.Download)
	}
	api.GET("/categories", photo.Categories)
	api.POST("/categories", auth, middleware.RequireAdmin(), photo.CreateCategory)

	// 收藏夹相关接口
	collectionGroup := api.Group("/collections")
	{
		collectionGroup.POST("", auth, collection.Create)
		collectionGroup.GET("", collection.List)
		collectionGroup.GET("/mine", auth, collection.Mine)

		item := collectionGroup.Group("/:identifier")
		item.GET("", optional, collection.Get)
		item.PUT("", auth, collection.Update)
		item.DELETE("", auth, collection.Delete)
		item.POST("/photos", auth, collection.AddPhotos)
		item.DELETE("/photos/:photoId", auth, collection.RemovePhoto)

		item.POST("/join", auth,
			middleware.RateLimit(d.RateLimits, "join", limits.JoinPerMinute, time.Minute, middleware.ByUser, d.Log),
			collection.Join)
		item.POST("/leave", auth, collection.Leave)
		item.GET("/collaborators", optional, collection.Collaborators)
		item.POST("/collaborators", auth, collection.Invite)
		item.DELETE("/collaborators/:id", auth, collection.RemoveCollaborator)
		item.POST("/collaborators/:id/resend", auth, collection.ResendInvitation)

		item.POST("/like", auth, collection.ToggleLike)
		item.POST("/view", optional, collection.View)
		item.GET("/comments", optional, collection.Comments)
		item.POST("/comments", auth, collection.AddComment)
		item.DELETE("/comments/:commentId", auth, collection.DeleteComment)
		item.POST("/comments/:commentId/like", auth, collection.ToggleCommentLike)
	}

	// 通知相关接口
	notificationGroup := api.Group("/notifications", auth)
	{
		notificationGroup.GET("", notification.List)
		notificationGroup.GET("/unread-count", notification.UnreadCount)
		notificationGroup.POST("/read-all", notification.MarkAllRead)
		notificationGroup.POST("/:id/read", notification.MarkRead)
	}

	// 管理后台接口
	adminGroup := api.Group("/admin", auth, middleware.RequireAdmin())
	{
		adminGroup.GET("/users", admin.Users)
		adminGroup.DELETE("/users/:id", admin.DeleteUser)
		adminGroup.PUT("/users/:id/role", admin.SetRole)
		adminGroup.GET("/stats", admin.Stats)
	}

	return r
}
