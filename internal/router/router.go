package router

import (
	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/internal/services"
	"folio/internal/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps 路由需要的外部依赖，Redis 为 nil 时不限流
type Deps struct {
	DB        *gorm.DB
	Log       logrus.FieldLogger
	Storage   services.Storage
	Cache     *utils.Cache
	CacheTTL  time.Duration
	Redis     *redis.Client
	RateLimit int
	RateWin   time.Duration
	SiteURL   string
	SiteName  string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Services
	accounts := services.NewAccountService(d.DB)
	profiles := services.NewProfileService(d.DB, d.Storage, d.Log)
	timeline := services.NewTimelineService(d.DB, d.Storage, d.Log)
	skills := services.NewSkillService(d.DB)
	catalog := services.NewCatalogService(d.DB, d.Cache)
	projects := services.NewProjectService(d.DB, d.Storage, d.Cache, d.CacheTTL, d.Log)
	media := services.NewMediaService(d.DB, d.Storage, d.Log)
	votes := services.NewVoteService(d.DB)
	comments := services.NewCommentService(d.DB)

	// Handlers
	authHandler := handlers.NewAuthHandler(accounts, d.Log)
	profileHandler := handlers.NewProfileHandler(profiles, d.Log)
	timelineHandler := handlers.NewTimelineHandler(timeline, skills, d.Log)
	skillHandler := handlers.NewSkillHandler(skills, d.Log)
	catalogHandler := handlers.NewCatalogHandler(catalog, d.Log)
	projectHandler := handlers.NewProjectHandler(projects, catalog, comments, votes, d.Log)
	mediaHandler := handlers.NewMediaHandler(media, d.Log)
	voteHandler := handlers.NewVoteHandler(votes, d.Log)
	commentHandler := handlers.NewCommentHandler(comments, d.Log)
	healthHandler := handlers.NewHealthHandler(d.DB)
	seoHandler := handlers.NewSEOHandler(projects, catalog, d.SiteURL, d.SiteName, d.Log)

	limit := middleware.RateLimit(d.Redis, d.RateLimit, d.RateWin, middleware.KeyByActor())

	// 公共路由 (Public Routes)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)
	r.GET("/", projectHandler.Home)                              // 首页
	r.GET("/about", profileHandler.About)                        // 关于
	r.GET("/profile", profileHandler.Detail)                     // 站长资料
	r.GET("/projects", projectHandler.List)                      // 项目列表
	r.GET("/projects/category/:slug", projectHandler.ByCategory) // 分类下的项目

	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// 登录用户 (Authenticated)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/projects/:project/comment", limit, commentHandler.Create) // 发表评论
		authorized.POST("/projects/:project/vote", limit, voteHandler.Vote)         // 赞/踩
		authorized.GET("/projects/:project/vote", voteHandler.InvalidMethod)
		authorized.POST("/comments/:id/delete", commentHandler.Delete) // 作者或管理员

		authorized.GET("/me/skills", skillHandler.Mine)
		authorized.POST("/me/skills", skillHandler.AddMine)
		authorized.POST("/me/skills/:id/edit", skillHandler.UpdateMine)
		authorized.POST("/me/skills/:id/delete", skillHandler.RemoveMine)
	}

	// 管理员 (Superuser)
	admin := r.Group("/")
	admin.Use(middleware.SuperuserRequired())
	{
		admin.GET("/profile/edit", profileHandler.ShowEdit)
		admin.POST("/profile/edit", profileHandler.Edit)

		admin.GET("/experience/create", timelineHandler.ShowCreateExperience)
		admin.POST("/experience/create", timelineHandler.CreateExperience)
		admin.GET("/experience/:id/edit", timelineHandler.ShowEditExperience)
		admin.POST("/experience/:id/edit", timelineHandler.UpdateExperience)
		admin.GET("/experience/:id/delete", timelineHandler.ConfirmDeleteExperience)
		admin.POST("/experience/:id/delete", timelineHandler.DeleteExperience)

		admin.GET("/certification/create", timelineHandler.ShowCreateCertification)
		admin.POST("/certification/create", timelineHandler.CreateCertification)
		admin.GET("/certification/:id/edit", timelineHandler.ShowEditCertification)
		admin.POST("/certification/:id/edit", timelineHandler.UpdateCertification)
		admin.GET("/certification/:id/delete", timelineHandler.ConfirmDeleteCertification)
		admin.POST("/certification/:id/delete", timelineHandler.DeleteCertification)

		admin.GET("/skills", skillHandler.Manage)
		admin.POST("/skills", skillHandler.Create)
		admin.POST("/skills/:id/edit", skillHandler.Update)
		admin.POST("/skills/:id/delete", skillHandler.Delete)

		admin.GET("/projects/create", projectHandler.ShowCreate)
		admin.POST("/projects/create", projectHandler.Create)
		admin.GET("/projects/:project/edit", projectHandler.ShowEdit)
		admin.POST("/projects/:project/edit", projectHandler.Update)
		admin.GET("/projects/:project/delete", projectHandler.ConfirmDelete)
		admin.POST("/projects/:project/delete", projectHandler.Delete)

		admin.GET("/projects/:project/images", mediaHandler.Images)
		admin.POST("/projects/:project/images", mediaHandler.AddImage)
		admin.GET("/projects/:project/images/:image_id/edit", mediaHandler.ShowEditImage)
		admin.POST("/projects/:project/images/:image_id/edit", mediaHandler.UpdateImage)
		admin.GET("/projects/:project/images/:image_id/delete", mediaHandler.ConfirmDeleteImage)
		admin.POST("/projects/:project/images/:image_id/delete", mediaHandler.DeleteImage)
		admin.POST("/projects/:project/files", mediaHandler.AddFile)
		admin.POST("/projects/:project/files/:file_id/delete", mediaHandler.DeleteFile)

		admin.POST("/comments/:id/approve", commentHandler.Approve)

		admin.GET("/categories", catalogHandler.Categories)
		admin.POST("/categories", catalogHandler.CreateCategory)
		admin.POST("/categories/:id/edit", catalogHandler.UpdateCategory)
		admin.POST("/categories/:id/delete", catalogHandler.DeleteCategory)
		admin.GET("/technologies", catalogHandler.Technologies)
		admin.POST("/technologies", catalogHandler.CreateTechnology)
		admin.POST("/technologies/:id/edit", catalogHandler.UpdateTechnology)
		admin.POST("/technologies/:id/delete", catalogHandler.DeleteTechnology)
	}

	r.GET("/projects/:project", projectHandler.Detail) // 项目详情，浏览数 +1
}
