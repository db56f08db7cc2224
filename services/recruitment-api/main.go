package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/case-framework/recruitment-backend/pkg/apihelpers"
	"github.com/case-framework/recruitment-backend/services/recruitment-api/apihandlers"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var conf RecruitmentApiConfig

func main() {
	defer func() {
		if err := recruitmentDBService.Close(); err != nil {
			slog.Error("Error closing Recruitment DB", slog.String("error", err.Error()))
		}
	}()

	// Start webserver
	router := gin.New()
	router.Use(gin.Recovery())
	if conf.GinConfig.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(apihelpers.ErrorResponder())

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	apiRoot := router.Group("/api")

	apiHandlers := apihandlers.NewHTTPHandler(
		conf.UserManagementConfig.JWTConfig.SignKey,
		tokenExpiresIn,
		recruitmentDBService,
		transitionTable,
		fileStore,
		apihandlers.UploadConfig{
			MaxFileSize:      conf.Uploads.MaxFileSize,
			MaxFiles:         conf.Uploads.MaxFiles,
			AllowedMimeTypes: conf.Uploads.AllowedMimeTypes,
		},
		mailer,
		messageTemplates,
		conf.Notifications.ProposalInbox,
		conf.UserManagementConfig.AllowPublicRegistration,
	)
	apiHandlers.AddAuthAPI(apiRoot)
	apiHandlers.AddUserManagementAPI(apiRoot)
	apiHandlers.AddSponsorsAPI(apiRoot)
	apiHandlers.AddSitesAPI(apiRoot)
	apiHandlers.AddStudiesAPI(apiRoot)
	apiHandlers.AddParticipantsAPI(apiRoot)
	apiHandlers.AddFilesAPI(apiRoot)
	apiHandlers.AddEventLogsAPI(apiRoot)
	apiHandlers.AddProposalsAPI(apiRoot)

	if conf.GinConfig.DebugMode {
		if err := apihelpers.WriteRoutesToFile(router, "recruitment-api-routes.txt"); err != nil {
			slog.Warn("Could not write routes to file", slog.String("error", err.Error()))
		}
	}

	server := &http.Server{
		Addr:              ":" + conf.GinConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server
	slog.Info("Starting Recruitment API", slog.String("port", conf.GinConfig.Port))
	if err := server.ListenAndServe(); err != nil {
		slog.Error("Exited Recruitment API", slog.String("error", err.Error()))
		return
	}
}
