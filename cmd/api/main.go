package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-timetable-api/api/swagger"
	"github.com/noah-isme/uni-timetable-api/internal/handler"
	"github.com/noah-isme/uni-timetable-api/internal/middleware"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/repository"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	"github.com/noah-isme/uni-timetable-api/pkg/cache"
	"github.com/noah-isme/uni-timetable-api/pkg/config"
	"github.com/noah-isme/uni-timetable-api/pkg/database"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
	"github.com/noah-isme/uni-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-timetable-api/pkg/middleware/requestid"
)

// @title University Timetable API
// @version 1.0.0
// @description Timetabling administration backend
// @BasePath /api/v1
// @schemes http

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	conflictRepo := repository.NewConflictRepository(db)
	reportRepo := repository.NewReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	metricsSvc := service.NewMetricsService()

	// Background notification fan-out.
	notificationWorker := service.NewNotificationWorker(notificationRepo, logr)
	notificationQueue := jobs.NewQueue("notifications", notificationWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notificationQueue.Start(context.Background())
	defer notificationQueue.Stop()

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "uni-timetable-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, groupRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, programRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, programRepo, validate, logr)
	slotSvc := service.NewTimeSlotService(slotRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, teacherRepo, slotRepo, validate, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, teacherRepo, assignmentRepo, notificationQueue, logr)
	conflictSvc := service.NewConflictService(conflictRepo, assignmentRepo, slotRepo, notificationSvc, logr)

	var timetableSvc *service.TimetableService
	if cfg.Timetable.CacheEnabled {
		timetableSvc = service.NewTimetableService(timetableRepo, cacheRepo, metricsSvc, cfg.Timetable.CacheTTL, logr)
	} else {
		timetableSvc = service.NewTimetableService(timetableRepo, nil, metricsSvc, cfg.Timetable.CacheTTL, logr)
	}

	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, groupRepo, teacherRepo, roomRepo, slotRepo, conflictSvc, timetableSvc, validate, logr)
	reportSvc := service.NewReportService(reportRepo, assignmentRepo, slotRepo, conflictSvc, timetableSvc, notificationSvc, validate, logr)
	generatorSvc := service.NewGeneratorService(groupRepo, courseRepo, teacherRepo, roomRepo, slotRepo, availabilityRepo, calendarRepo, assignmentRepo, conflictSvc, metricsSvc, validate, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	slotHandler := handler.NewTimeSlotHandler(slotSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	conflictHandler := handler.NewConflictHandler(conflictSvc)
	generatorHandler := handler.NewGeneratorHandler(generatorSvc, timetableSvc)
	reportHandler := handler.NewReportHandler(reportSvc, teacherSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)

	users := protected.Group("/users")
	{
		users.GET("", admins, userHandler.List)
		users.GET("/:id", middleware.RBAC("SUPERADMIN", "ADMIN", "SELF"), userHandler.Get)
		users.POST("", admins, userHandler.Create)
		users.PUT("/:id", admins, userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleSuperAdmin), userHandler.Delete)
	}

	teachers := protected.Group("/teachers")
	{
		teachers.GET("", teacherHandler.List)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.POST("", admins, teacherHandler.Create)
		teachers.PUT("/:id", admins, teacherHandler.Update)
		teachers.DELETE("/:id", admins, teacherHandler.Delete)
	}

	students := protected.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.GET("/:id", staff, studentHandler.Get)
		students.POST("", admins, studentHandler.Create)
		students.PUT("/:id", admins, studentHandler.Update)
		students.DELETE("/:id", admins, studentHandler.Delete)
	}

	programs := protected.Group("/programs")
	{
		programs.GET("", programHandler.List)
		programs.GET("/:id", programHandler.Get)
		programs.POST("", admins, programHandler.Create)
		programs.PUT("/:id", admins, programHandler.Update)
		programs.DELETE("/:id", admins, programHandler.Delete)
	}

	groups := protected.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.GET("/:id", groupHandler.Get)
		groups.POST("", admins, groupHandler.Create)
		groups.PUT("/:id", admins, groupHandler.Update)
		groups.DELETE("/:id", admins, groupHandler.Delete)
	}

	rooms := protected.Group("/rooms")
	{
		rooms.GET("", roomHandler.List)
		rooms.GET("/:id", roomHandler.Get)
		rooms.POST("", admins, roomHandler.Create)
		rooms.PUT("/:id", admins, roomHandler.Update)
		rooms.DELETE("/:id", admins, roomHandler.Delete)
	}

	courses := protected.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", admins, courseHandler.Create)
		courses.PUT("/:id", admins, courseHandler.Update)
		courses.DELETE("/:id", admins, courseHandler.Delete)
	}

	slots := protected.Group("/time-slots")
	{
		slots.GET("", slotHandler.List)
		slots.GET("/:id", slotHandler.Get)
		slots.POST("", admins, slotHandler.Create)
		slots.PUT("/:id", admins, slotHandler.Update)
		slots.DELETE("/:id", admins, slotHandler.Delete)
	}

	availabilities := protected.Group("/availabilities")
	{
		availabilities.GET("", staff, availabilityHandler.List)
		availabilities.GET("/:id", staff, availabilityHandler.Get)
		availabilities.POST("", staff, availabilityHandler.Create)
		availabilities.PUT("/:id", staff, availabilityHandler.Update)
		availabilities.DELETE("/:id", staff, availabilityHandler.Delete)
	}

	calendarEvents := protected.Group("/calendar-events")
	{
		calendarEvents.GET("", calendarHandler.List)
		calendarEvents.GET("/:id", calendarHandler.Get)
		calendarEvents.POST("", admins, calendarHandler.Create)
		calendarEvents.PUT("/:id", admins, calendarHandler.Update)
		calendarEvents.DELETE("/:id", admins, calendarHandler.Delete)
	}

	assignments := protected.Group("/assignments")
	{
		assignments.GET("", assignmentHandler.List)
		assignments.GET("/:id", assignmentHandler.Get)
		assignments.POST("", admins, assignmentHandler.Create)
		assignments.POST("/generate", admins, generatorHandler.Generate)
		assignments.PUT("/:id", admins, assignmentHandler.Update)
		assignments.PATCH("/:id/status", admins, assignmentHandler.UpdateStatus)
		assignments.POST("/:id/cancel", admins, assignmentHandler.Cancel)
		assignments.DELETE("/:id", admins, assignmentHandler.Delete)
	}

	conflicts := protected.Group("/conflicts")
	{
		conflicts.GET("", admins, conflictHandler.List)
		conflicts.GET("/:id", admins, conflictHandler.Get)
		conflicts.GET("/detect", admins, conflictHandler.Preview)
		conflicts.POST("/detect", admins, conflictHandler.Detect)
		conflicts.POST("/:id/resolve", admins, conflictHandler.Resolve)
	}

	reports := protected.Group("/reports")
	{
		reports.GET("", staff, reportHandler.List)
		reports.GET("/:id", staff, reportHandler.Get)
		reports.POST("", middleware.RequireRoles(models.RoleTeacher), reportHandler.Create)
		reports.POST("/:id/approve", admins, reportHandler.Approve)
		reports.POST("/:id/reject", admins, reportHandler.Reject)
		reports.DELETE("/:id", staff, reportHandler.Delete)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	timetables := protected.Group("/timetables")
	{
		timetables.GET("/groups/:id", timetableHandler.ForGroup)
		timetables.GET("/teachers/:id", timetableHandler.ForTeacher)
		timetables.GET("/rooms/:id", timetableHandler.ForRoom)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
