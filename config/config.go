package config

import (
	"fmt"
	"os"

	"github.com/exlinc/golang-utils/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// The app is in production or debug mode
	Mode string `envconfig:"MODE" default:"production"`
	// Canvas connection defaults; document frontmatter takes precedence
	CanvasBaseURL  string `envconfig:"CANVAS_BASE_URL"`
	CanvasCourseID string `envconfig:"CANVAS_COURSE_ID"`
	// Token override; when empty the OS keychain is consulted
	CanvasAPIToken       string `envconfig:"CANVAS_API_TOKEN"`
	SyncServerAddr       string `envconfig:"SYNC_SERVER_ADDR" default:"0.0.0.0"`
	SyncServerPort       string `envconfig:"SYNC_SERVER_PORT" default:"3345"`
	GHWebhookSecret      string `envconfig:"GH_WEBHOOK_SECRET"`
	GHUserToken          string `envconfig:"GH_USER_TOKEN"`
	GHAutoGenCommitMsg   string `envconfig:"GH_AUTOGEN_COMMIT_MSG" default:"auto#gen"`
	CourseFilePath       string `envconfig:"COURSE_FILE_PATH" default:"course.md"`
	SMTPReportRecipient  string `envconfig:"SMTP_REPORT_RECIPIENT"`
	SMTPFromName         string `envconfig:"SMTP_FROM_NAME" default:"Canvas Course Sync Service"`
	SMTPFromAddress      string `envconfig:"SMTP_FROM_ADDRESS" default:"noreply@example.edu"`
	SMTPHost             string `envconfig:"SMTP_HOST"`
	SMTPConnectionString string `envconfig:"SMTP_CONNECTION_STRING"`
	SMTPUserName         string `envconfig:"SMTP_USER_NAME" default:"apikey"`
	SMTPPassword         string `envconfig:"SMTP_PASSWORD"`
}

var conf *Config

const (
	DebugMode      = "debug"
	ProductionMode = "production"
)

func init() {
	conf = &Config{}
	err := envconfig.Process("canvas_util", conf)
	if err != nil {
		fmt.Println("Fatal error processing configuration")
		panic(err)
	}
	l := conf.GetLogger()
	if !conf.IsDebugMode() && !conf.IsProductionMode() {
		l.Fatal("Invalid CANVAS_UTIL_MODE variable, it must be either `debug` or `production`")
	}
}

// Cfg returns the configuration - will panic if the config has not been loaded or is nil (which shouldn't happen as that's implicit in the package init)
func Cfg() *Config {
	if conf == nil {
		panic("Config is nil")
	}
	return conf
}

func (cfg *Config) GetLogger() *logrus.Logger {
	logLvl := logrus.InfoLevel
	if cfg.IsDebugMode() {
		logLvl = logrus.DebugLevel
	}
	var l = &logrus.Logger{
		Out:       os.Stderr,
		Formatter: new(logrus.TextFormatter),
		Hooks:     make(logrus.LevelHooks),
		Level:     logLvl,
	}
	return l
}

func (cfg *Config) IsDebugMode() bool {
	return cfg.Mode == DebugMode
}

func (cfg *Config) IsProductionMode() bool {
	return cfg.Mode == ProductionMode
}
