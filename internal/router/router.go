package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"voltprep/internal/handlers"
	"voltprep/internal/middleware"
)

// Handlers 所有路由用到的 handler
type Handlers struct {
	Auth              *handlers.AuthHandler
	Progress          *handlers.ProgressHandler
	Session           *handlers.SessionHandler
	User              *handlers.UserHandler
	Bookmark          *handlers.BookmarkHandler
	FlashcardBookmark *handlers.BookmarkHandler
	QuizResult        *handlers.QuizResultHandler
	Billing           *handlers.BillingHandler
	Contact           *handlers.ContactHandler
}

type SessionOptions struct {
	Secret string
	Secure bool
}

func New(opts SessionOptions, users middleware.UserFinder, h Handlers) *gin.Engine {
	r := gin.Default()
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(opts.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("voltprep_session", store))
	r.Use(middleware.LoadUser(users))

	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// 公共路由 (Public Routes)
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)              // 邮箱注册
		auth.POST("/login", h.Auth.Login)                    // 登录
		auth.POST("/logout", h.Auth.Logout)                  // 退出登录
		auth.GET("/verify-email", h.Auth.VerifyEmail)        // 邮箱验证
		auth.POST("/forgot-password", h.Auth.ForgotPassword) // 申请重置密码
		auth.POST("/reset-password", h.Auth.ResetPassword)   // 重置密码
		auth.GET("/google", h.Auth.GoogleLogin)              // Google 登录
		auth.GET("/google/callback", h.Auth.GoogleCallback)  // Google 回调
	}
	r.POST("/contact", h.Contact.Submit)          // 联系表单，按客户端限流
	r.POST("/webhooks/stripe", h.Billing.Webhook) // Stripe 签名校验

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/auth/resend-verification", h.Auth.ResendVerification) // 重发验证邮件

		authorized.POST("/progress", h.Progress.Record)     // 提交答题
		authorized.GET("/progress/stats", h.Progress.Stats) // 学习统计

		authorized.POST("/sessions", h.Session.Open)   // 开始学习会话
		authorized.PATCH("/sessions", h.Session.Close) // 结束学习会话

		authorized.GET("/user", h.User.Me)                      // 当前用户
		authorized.PATCH("/user/profile", h.User.UpdateProfile) // 更新资料

		authorized.GET("/bookmarks", h.Bookmark.List)
		authorized.POST("/bookmarks", h.Bookmark.Create)
		authorized.DELETE("/bookmarks/:id", h.Bookmark.Delete)
		authorized.GET("/flashcard-bookmarks", h.FlashcardBookmark.List)
		authorized.POST("/flashcard-bookmarks", h.FlashcardBookmark.Create)
		authorized.DELETE("/flashcard-bookmarks/:id", h.FlashcardBookmark.Delete)

		authorized.GET("/quiz-results", h.QuizResult.List)
		authorized.POST("/quiz-results", h.QuizResult.Create)

		authorized.POST("/billing/checkout", h.Billing.Checkout) // Stripe 结账
		authorized.POST("/billing/portal", h.Billing.Portal)     // Stripe 账单管理
	}
}
