package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/case-framework/recruitment-backend/pkg/db"
	"github.com/case-framework/recruitment-backend/pkg/filestore"
	"github.com/case-framework/recruitment-backend/pkg/messaging/templates"
	"github.com/case-framework/recruitment-backend/pkg/recruitment/workflow"
	smtpclient "github.com/case-framework/recruitment-backend/pkg/smtp-client"
	"github.com/case-framework/recruitment-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
	umUtils "github.com/case-framework/recruitment-backend/pkg/user-management/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"
)

const defaultTokenExpiresIn = 8 * time.Hour

type RecruitmentApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode" env:"GIN_DEBUG_MODE"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS"`
		Port         string   `json:"port" yaml:"port" env:"RECRUITMENT_API_LISTEN_PORT"`
	} `json:"gin_config" yaml:"gin_config"`

	UserManagementConfig struct {
		JWTConfig struct {
			SignKey   string `json:"sign_key" yaml:"sign_key" env:"USER_JWT_SIGN_KEY"`
			ExpiresIn string `json:"expires_in" yaml:"expires_in" env:"USER_JWT_EXPIRES_IN"`
		} `json:"jwt_config" yaml:"jwt_config"`
		AllowPublicRegistration  bool   `json:"allow_public_registration" yaml:"allow_public_registration"`
		BlockedPasswordsFilePath string `json:"blocked_passwords_file_path" yaml:"blocked_passwords_file_path"`
	} `json:"user_management_config" yaml:"user_management_config"`

	// DB configs
	DBConfigs struct {
		RecruitmentDB db.DBConfigYaml `json:"recruitment_db" yaml:"recruitment_db"`
	} `json:"db_configs" yaml:"db_configs"`

	Workflow struct {
		AllowDisqualified bool `json:"allow_disqualified" yaml:"allow_disqualified"`
	} `json:"workflow" yaml:"workflow"`

	Uploads struct {
		FilestorePath    string   `json:"filestore_path" yaml:"filestore_path" env:"FILESTORE_PATH"`
		MaxFileSize      int64    `json:"max_file_size" yaml:"max_file_size"`
		MaxFiles         int      `json:"max_files" yaml:"max_files"`
		AllowedMimeTypes []string `json:"allowed_mime_types" yaml:"allowed_mime_types"`
	} `json:"uploads" yaml:"uploads"`

	Notifications struct {
		SmtpServerConfigFile string                `json:"smtp_server_config_file" yaml:"smtp_server_config_file" env:"SMTP_SERVER_CONFIG_FILE"`
		ProposalInbox        []string              `json:"proposal_inbox" yaml:"proposal_inbox"`
		Templates            templates.TemplateSet `json:"templates" yaml:"templates"`
	} `json:"notifications" yaml:"notifications"`
}

var (
	recruitmentDBService *recruitmentDB.RecruitmentDBService
	fileStore            *filestore.DiskStore
	mailer               smtpclient.Mailer
	messageTemplates     templates.TemplateSet
	transitionTable      workflow.TransitionTable
	tokenExpiresIn       time.Duration
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Override secrets and deployment values from environment variables
	if err := env.Parse(&conf); err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger("recruitment-api", conf.Logging)

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	initTokenConfig()

	if conf.UserManagementConfig.BlockedPasswordsFilePath != "" {
		if err := umUtils.LoadBlockedPasswords(conf.UserManagementConfig.BlockedPasswordsFilePath); err != nil {
			panic(err)
		}
	}

	initDBs()

	initFilestore()

	initWorkflow()

	initMessaging()
}

func initTokenConfig() {
	if conf.UserManagementConfig.JWTConfig.SignKey == "" {
		panic("user jwt sign key not set")
	}

	tokenExpiresIn = defaultTokenExpiresIn
	if v := conf.UserManagementConfig.JWTConfig.ExpiresIn; v != "" {
		d, err := utils.ParseDurationString(v)
		if err != nil {
			panic(err)
		}
		tokenExpiresIn = d
	}
}

func initDBs() {
	dbConfig, err := conf.DBConfigs.RecruitmentDB.ToDBConfig()
	if err != nil {
		slog.Error("Invalid recruitment DB config", slog.String("error", err.Error()))
		panic(err)
	}

	recruitmentDBService, err = recruitmentDB.NewRecruitmentDBService(dbConfig)
	if err != nil {
		slog.Error("Error connecting to Recruitment DB", slog.String("error", err.Error()))
		panic(err)
	}
}

func initFilestore() {
	var err error
	fileStore, err = filestore.NewDiskStore(conf.Uploads.FilestorePath)
	if err != nil {
		slog.Error("Error initializing filestore", slog.String("path", conf.Uploads.FilestorePath), slog.String("error", err.Error()))
		panic(err)
	}

	if conf.Uploads.MaxFileSize <= 0 {
		conf.Uploads.MaxFileSize = utils.MAX_UPLOAD_FILE_SIZE
	}
	if conf.Uploads.MaxFiles <= 0 {
		conf.Uploads.MaxFiles = utils.MAX_FILES_PER_UPLOAD
	}
	if len(conf.Uploads.AllowedMimeTypes) == 0 {
		conf.Uploads.AllowedMimeTypes = utils.DefaultAllowedUploadTypes
	}
}

func initWorkflow() {
	transitionTable = workflow.DefaultTransitions()
	if conf.Workflow.AllowDisqualified {
		transitionTable = workflow.TransitionsWithDisqualification()
	}
}

func initMessaging() {
	var err error
	messageTemplates, err = templates.WithDefaults(conf.Notifications.Templates)
	if err != nil {
		panic(err)
	}

	if conf.Notifications.SmtpServerConfigFile == "" {
		slog.Warn("no smtp server config set, notification mails are disabled")
		return
	}

	var servers smtpclient.SmtpServerList
	if err := servers.ReadFromFile(conf.Notifications.SmtpServerConfigFile); err != nil {
		panic(err)
	}
	mailer, err = smtpclient.NewSmtpClients(servers)
	if err != nil {
		slog.Error("Error initializing smtp clients", slog.String("error", err.Error()))
		panic(err)
	}
}
