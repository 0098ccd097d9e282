package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/arka-edu/school-suite-api/api/swagger"
	"github.com/arka-edu/school-suite-api/internal/handler"
	"github.com/arka-edu/school-suite-api/internal/middleware"
	"github.com/arka-edu/school-suite-api/internal/models"
	"github.com/arka-edu/school-suite-api/internal/repository"
	"github.com/arka-edu/school-suite-api/internal/schedule"
	"github.com/arka-edu/school-suite-api/internal/service"
	"github.com/arka-edu/school-suite-api/pkg/cache"
	"github.com/arka-edu/school-suite-api/pkg/config"
	"github.com/arka-edu/school-suite-api/pkg/database"
	"github.com/arka-edu/school-suite-api/pkg/logger"
	corsmiddleware "github.com/arka-edu/school-suite-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arka-edu/school-suite-api/pkg/middleware/requestid"
)

// @title School Suite API
// @version 1.0.0
// @description Multi-branch school administration suite with period allocation
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, occupancy caching disabled", zap.Error(err))
		cacheService = service.NewCacheService(nil, metricsService, cfg.Timetable.OccupancyCacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Timetable.OccupancyCacheTTL, logr, true)
	}

	validate := validator.New()

	timetableRepo := repository.NewTimetableRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "school-suite-api",
	})
	timetableService := service.NewTimetableService(timetableRepo, teacherRepo, classRepo, cacheService, metricsService, validate, logr, service.TimetableServiceConfig{
		Policy: schedule.Policy{
			LecturesBeforeBreak: cfg.Timetable.LecturesBeforeBreak,
			MinPeriodMinutes:    cfg.Timetable.MinPeriodMinutes,
		},
		OccupancyTTL: cfg.Timetable.OccupancyCacheTTL,
	})
	teacherService := service.NewTeacherService(teacherRepo, validate, logr)
	classService := service.NewClassService(classRepo, validate, logr)
	exportService := service.NewExportService(timetableService, logr, cfg.Export.Enabled)

	authHandler := handler.NewAuthHandler(authService)
	timetableHandler := handler.NewTimetableHandler(timetableService, exportService)
	teacherHandler := handler.NewTeacherHandler(teacherService, timetableService)
	classHandler := handler.NewClassHandler(classService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiV1 := r.Group("/api/v1")

	auth := apiV1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	timetables := apiV1.Group("/timetables", middleware.JWT(authService))
	timetables.GET("", timetableHandler.List)
	timetables.GET("/:id", timetableHandler.Get)
	timetables.GET("/:id/export", timetableHandler.Export)
	timetables.POST("", admins, timetableHandler.Create)
	timetables.DELETE("/:id", admins, timetableHandler.Delete)
	timetables.PATCH("/:id/status", admins, timetableHandler.UpdateStatus)
	timetables.POST("/:id/periods", admins, timetableHandler.AddPeriod)
	timetables.POST("/:id/periods/bulk", admins, timetableHandler.AllocatePeriods)
	timetables.PUT("/:id/periods/:index", admins, timetableHandler.UpdatePeriod)
	timetables.DELETE("/:id/periods/:index", admins, timetableHandler.RemovePeriod)
	timetables.POST("/:id/periods/:index/teacher", admins, timetableHandler.AssignTeacher)

	teachers := apiV1.Group("/teachers", middleware.JWT(authService))
	teachers.GET("", teacherHandler.List)
	teachers.GET("/available", teacherHandler.Available)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.POST("", admins, teacherHandler.Create)
	teachers.PUT("/:id", admins, teacherHandler.Update)
	teachers.DELETE("/:id", admins, teacherHandler.Deactivate)

	classes := apiV1.Group("/classes", middleware.JWT(authService))
	classes.GET("", classHandler.List)
	classes.GET("/:id", classHandler.Get)
	classes.POST("", admins, classHandler.Create)
	classes.PUT("/:id", admins, classHandler.Update)
	classes.DELETE("/:id", admins, classHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
