package main

import (
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the routes.
type appServices struct {
	cfg       *config.Config
	db        *gorm.DB
	hub       *services.SSEHub
	taskQueue services.TaskQueue
	worker    *services.Worker

	auth          *services.AuthService
	projects      *services.ProjectService
	wizard        *services.WizardService
	questions     *services.QuestionService
	features      *services.FeatureService
	tasks         *services.TaskService
	collaboration *services.CollaborationService
	chat          *services.ChatService
	dashboard     *services.DashboardService
	llmConfigs    *services.LLMConfigService
	aiUsage       *services.AIUsageService
	systemLogs    *services.SystemLogService
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)
	utils.SetJWTIssuer(cfg.JWT.Issuer)

	// Initialize database
	if err := models.InitDB(&cfg.Database, cfg.Server.Mode == "debug"); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize system logger
	services.InitSystemLogger(db)

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(db, cfg.Server.LogRetentionDays)

	hub := services.GetSSEHub()
	generator := services.NewLLMGenerator(services.NewAIService(db, &cfg.OpenAI))

	// Notifications are delivered by the Redis worker when enabled, otherwise in process
	notifier := services.NewNotificationService(services.NewEmailService(&cfg.SMTP), cfg.Server.BaseURL)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notifier.Process)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notifier.Process)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start notification worker")
				worker = nil
			}
		}
	}

	services.RegisterRuntimeMetrics(db, hub, taskQueue)

	// Create default admin user
	auth := services.NewAuthService(db, &cfg.JWT, &cfg.LDAP)
	if err := auth.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:       cfg,
		db:        db,
		hub:       hub,
		taskQueue: taskQueue,
		worker:    worker,

		auth:          auth,
		projects:      services.NewProjectService(db, hub),
		wizard:        services.NewWizardService(db, generator, hub),
		questions:     services.NewQuestionService(db, generator, hub),
		features:      services.NewFeatureService(db, generator, hub),
		tasks:         services.NewTaskService(db, hub),
		collaboration: services.NewCollaborationService(db, taskQueue, hub),
		chat:          services.NewChatService(db, hub),
		dashboard:     services.NewDashboardService(db),
		llmConfigs:    services.NewLLMConfigService(db),
		aiUsage:       services.NewAIUsageService(db),
		systemLogs:    services.NewSystemLogService(db),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	services.StopLogCleanupScheduler()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if syncQueue, ok := s.taskQueue.(*services.SyncQueue); ok {
			syncQueue.Wait()
		}
		s.taskQueue.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
