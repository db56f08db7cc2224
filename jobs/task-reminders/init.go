package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/case-framework/recruitment-backend/pkg/db"
	"github.com/case-framework/recruitment-backend/pkg/messaging/templates"
	smtpclient "github.com/case-framework/recruitment-backend/pkg/smtp-client"
	"github.com/case-framework/recruitment-backend/pkg/utils"
	"gopkg.in/yaml.v2"

	recruitmentDB "github.com/case-framework/recruitment-backend/pkg/db/recruitment"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		RecruitmentDB db.DBConfigYaml `json:"recruitment_db" yaml:"recruitment_db"`
	} `json:"db_configs" yaml:"db_configs"`

	SmtpServerConfigFile string                `json:"smtp_server_config_file" yaml:"smtp_server_config_file" env:"SMTP_SERVER_CONFIG_FILE"`
	Templates            templates.TemplateSet `json:"templates" yaml:"templates"`

	// Tasks are reminded once they are overdue by this duration, e.g. "0h" or "1d".
	OverdueBy string `json:"overdue_by" yaml:"overdue_by" env:"TASK_REMINDER_OVERDUE_BY"`
	DryRun    bool   `json:"dry_run" yaml:"dry_run"`
}

var conf config

var (
	recruitmentDBService *recruitmentDB.RecruitmentDBService
	mailer               smtpclient.Mailer
	messageTemplates     templates.TemplateSet
	overdueBy            time.Duration
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

	if err := env.Parse(&conf); err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger("task-reminders", conf.Logging)

	if conf.OverdueBy != "" {
		overdueBy, err = utils.ParseDurationString(conf.OverdueBy)
		if err != nil {
			panic(err)
		}
	}

	initDBs()

	initMessaging()
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

func initMessaging() {
	var err error
	messageTemplates, err = templates.WithDefaults(conf.Templates)
	if err != nil {
		panic(err)
	}

	if conf.DryRun {
		return
	}
	if conf.SmtpServerConfigFile == "" {
		panic("smtp server config file not set")
	}

	var servers smtpclient.SmtpServerList
	if err := servers.ReadFromFile(conf.SmtpServerConfigFile); err != nil {
		panic(err)
	}
	mailer, err = smtpclient.NewDirectSender(servers)
	if err != nil {
		slog.Error("Error initializing smtp sender", slog.String("error", err.Error()))
		panic(err)
	}
}
