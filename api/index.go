package handler

import (
	"fmt"
	"net/http"
	"time"

	"creator-market-backend/pkg/config"
	"creator-market-backend/pkg/database"
	"creator-market-backend/pkg/handlers"
	customMiddleware "creator-market-backend/pkg/middleware"
	"creator-market-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler 是Vercel函数的入口点
// 这个函数实现了"单体路由模式"，将所有API端点集中在一个Chi路由器中管理
func Handler(w http.ResponseWriter, r *http.Request) {
	// 加载配置
	cfg := config.GetCached()

	// 验证配置
	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// 获取连接池管理的数据库连接
	db := database.GetDatabase(database.DatabaseConfig{
		UseMemoryDB: cfg.UseMemoryDB,
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	})
	// 注意：连接由连接池管理，无需手动关闭

	// 创建Chi路由器
	router := chi.NewRouter()

	// 设置全局中间件
	setupMiddleware(router, cfg)

	// 设置路由
	setupRoutes(router, cfg, db)

	// 将请求传递给Chi路由器处理
	router.ServeHTTP(w, r)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	// 基础中间件
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	// CORS中间件
	router.Use(customMiddleware.CORS(cfg))

	// 超时中间件（Vercel函数有时间限制）
	router.Use(middleware.Timeout(25 * time.Second)) // 留5秒缓冲

	// 压缩中间件
	router.Use(middleware.Compress(5))

	// 请求体大小限制
	router.Use(customMiddleware.MaxBodySize(1 << 20)) // 1MB

	// 开发环境额外中间件
	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	// 创建处理器
	authHandler := handlers.NewAuthHandler(cfg, db)
	sessionHandler := handlers.NewSessionHandler(cfg, db)
	delegatesHandler := handlers.NewDelegatesHandler(cfg, db)
	profilesHandler := handlers.NewProfilesHandler(cfg, db)

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)

	// 数据库连接池状态端点（调试用）
	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			stats := database.GetConnectionStats()
			stats["serverless"] = database.IsServerlessEnvironment()
			utils.WriteSuccessResponse(w, stats)
		})

		// 环境变量检查端点
		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			envStatus := map[string]interface{}{
				"jwt_secret":    cfg.JWTSecret != "",
				"postgres_dsn":  cfg.PostgresDSN != "",
				"supabase_url":  cfg.SupabaseURL != "",
				"supabase_key":  cfg.SupabaseKey != "",
				"use_memory_db": cfg.UseMemoryDB,
			}
			utils.WriteSuccessResponse(w, envStatus)
		})
	}

	// API路由组
	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			// 应用认证中间件
			r.Use(customMiddleware.AuthMiddleware(cfg))
			r.Use(customMiddleware.ContentTypeJSON)

			// 会话引导：先链接待处理邀请，再解析委托访问
			r.Route("/session", func(r chi.Router) {
				r.Post("/start", sessionHandler.StartSession)
			})

			// 委托访问路由
			r.Route("/delegates", func(r chi.Router) {
				r.Get("/access", delegatesHandler.GetMyAccess)
				r.Get("/invitations", delegatesHandler.ListMyInvitations)
				r.Post("/invite", delegatesHandler.InviteDelegate)
			})

			// 档案管理路由
			r.Route("/profiles", func(r chi.Router) {
				r.Post("/", profilesHandler.CreateProfile)
				r.Get("/", profilesHandler.ListMyProfiles)
				r.Get("/{profileID}", profilesHandler.GetProfile)
				r.Put("/{profileID}", profilesHandler.UpdateProfile)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
