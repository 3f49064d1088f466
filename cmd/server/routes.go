package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/handlers"
	"github.com/huangang/ideaforge/backend/internal/middleware"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))

	// Rate limiter for LLM generation routes
	aiLimiter := middleware.NewRateLimiter(svc.cfg.OpenAI.RateLimit, svc.cfg.OpenAI.RateBurst)

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	authHandler := handlers.NewAuthHandler(svc.auth)
	projectHandler := handlers.NewProjectHandler(svc.projects, svc.dashboard)
	wizardHandler := handlers.NewWizardHandler(svc.wizard)
	questionHandler := handlers.NewQuestionHandler(svc.questions)
	featureHandler := handlers.NewFeatureHandler(svc.features, svc.tasks)
	taskHandler := handlers.NewTaskHandler(svc.tasks)
	memberHandler := handlers.NewMemberHandler(svc.collaboration)
	chatHandler := handlers.NewChatHandler(svc.chat)
	dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)
	sseHandler := handlers.NewSSEHandler(svc.hub, svc.projects)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.GET("/config", authHandler.GetAuthConfig)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.PUT("/auth/me", authHandler.UpdateProfile)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			// Dashboard
			protected.GET("/dashboard", dashboardHandler.GetOverview)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.POST("/projects", projectHandler.Create)
			protected.GET("/projects/:id", projectHandler.Get)
			protected.PUT("/projects/:id/status", projectHandler.UpdateStatus)
			protected.DELETE("/projects/:id", projectHandler.Delete)
			protected.GET("/projects/:id/stats", projectHandler.Stats)
			protected.GET("/projects/:id/events", sseHandler.StreamProjectEvents)

			// Wizard
			protected.POST("/projects/:id/wizard/back", wizardHandler.Back)
			protected.PUT("/projects/:id/wizard/draft", wizardHandler.SaveDraft)

			// Questions and answers
			protected.GET("/projects/:id/questions", questionHandler.List)
			protected.GET("/projects/:id/answers", questionHandler.ListAnswers)
			protected.PUT("/projects/:id/answers", questionHandler.SaveAnswer)

			// Features
			protected.GET("/projects/:id/features", featureHandler.List)
			protected.POST("/projects/:id/features", featureHandler.Create)
			protected.PUT("/projects/:id/features/:featureId", featureHandler.Update)
			protected.DELETE("/projects/:id/features/:featureId", featureHandler.Delete)
			protected.POST("/projects/:id/features/:featureId/task", featureHandler.Promote)
			protected.DELETE("/projects/:id/features/:featureId/task", featureHandler.Demote)

			// Task board
			protected.GET("/projects/:id/tasks", taskHandler.List)
			protected.POST("/projects/:id/tasks", taskHandler.Create)
			protected.PUT("/projects/:id/tasks/:taskId", taskHandler.Update)
			protected.DELETE("/projects/:id/tasks/:taskId", taskHandler.Delete)
			protected.POST("/projects/:id/tasks/:taskId/move", taskHandler.Move)
			protected.PUT("/projects/:id/tasks/:taskId/assignee", taskHandler.Assign)
			protected.PUT("/projects/:id/tasks/:taskId/notes", taskHandler.UpdateNotes)

			// Members
			protected.GET("/projects/:id/members", memberHandler.List)
			protected.POST("/projects/:id/members", memberHandler.Add)
			protected.PUT("/projects/:id/members/:userId", memberHandler.UpdateRole)
			protected.DELETE("/projects/:id/members/:userId", memberHandler.Remove)

			// Chat
			protected.GET("/projects/:id/messages", chatHandler.List)
			protected.POST("/projects/:id/messages", chatHandler.Send)

			// LLM generation (rate limited per user)
			generation := protected.Group("", aiLimiter.Middleware())
			{
				generation.POST("/projects/:id/wizard/steps/:step", wizardHandler.CompleteStep)
				generation.POST("/projects/:id/questions/generate", questionHandler.Generate)
				generation.POST("/projects/:id/features/generate", featureHandler.Generate)
				generation.POST("/projects/:id/prompt", wizardHandler.GenerateProjectPrompt)
				generation.POST("/projects/:id/features/:featureId/prompt", wizardHandler.GenerateFeaturePrompt)
			}

			// Admin
			admin := protected.Group("", middleware.AdminRequired())
			{
				userHandler := handlers.NewUserHandler(svc.db)
				admin.GET("/users", userHandler.List)
				admin.PUT("/users/:id", userHandler.Update)
				admin.DELETE("/users/:id", userHandler.Delete)

				llmConfigHandler := handlers.NewLLMConfigHandler(svc.llmConfigs)
				admin.GET("/llm-configs", llmConfigHandler.List)
				admin.GET("/llm-configs/active", llmConfigHandler.GetActive)
				admin.GET("/llm-configs/:id", llmConfigHandler.GetByID)
				admin.POST("/llm-configs", llmConfigHandler.Create)
				admin.PUT("/llm-configs/:id", llmConfigHandler.Update)
				admin.DELETE("/llm-configs/:id", llmConfigHandler.Delete)

				aiUsageHandler := handlers.NewAIUsageHandler(svc.aiUsage)
				admin.GET("/ai-usage/stats", aiUsageHandler.GetStats)
				admin.GET("/ai-usage/breakdown", aiUsageHandler.GetBreakdown)

				systemLogHandler := handlers.NewSystemLogHandler(svc.systemLogs)
				admin.GET("/system-logs", systemLogHandler.List)
				admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			}
		}
	}
}
