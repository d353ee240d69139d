package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageInMem    = "inmem"
	StoragePostgres = "postgres"
)

type (
	ServerConfig struct {
		Address         string
		DebugHost       string
		Host            string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	EmailConfig struct {
		DefaultFrom    mail.Address
		SendgridApiKey string
		// AmendmentNoticeTo receives a notice every time a recorded day is amended.
		AmendmentNoticeTo []mail.Address
	}

	AttendanceConfig struct {
		SubmitTimeout time.Duration
	}

	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string
		Storage      string
		SeedFile     string // JSON classes loaded into the inmem store at startup

		Server     ServerConfig
		Database   DatabaseConfig
		Email      EmailConfig
		Attendance AttendanceConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the app configuration from the environment.
// Variables are prefixed with the value of ENV, i.e. DEV_DATABASE_NAME.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Diario")
	conf.SetDefault("storage", StorageInMem)
	conf.SetDefault("seedFile", "")
	conf.SetDefault("server.address", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.disableReqLogs", false)
	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "diario")
	conf.SetDefault("database.user", "diario")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)
	conf.SetDefault("email.defaultFrom", "noreply@localhost")
	conf.SetDefault("email.sendgridApiKey", "")
	conf.SetDefault("email.amendmentNoticeTo", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("attendance.submitTimeout", 10*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        conf.GetString("build"),
		AppName:      conf.GetString("appName"),
		Debug:        conf.GetBool("debug"),
		TestMode:     conf.GetBool("testMode"),
		WorkDir:      workDir,
		RollbarToken: conf.GetString("rollbarToken"),
		Storage:      CleanString(conf.GetString("storage"), true),
		SeedFile:     conf.GetString("seedFile"),
		Server: ServerConfig{
			Address:         conf.GetString("server.address"),
			DebugHost:       conf.GetString("server.debugHost"),
			Host:            conf.GetString("server.host"),
			ShutdownTimeout: conf.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  conf.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Email: EmailConfig{
			DefaultFrom:       parseAddress(conf.GetString("email.defaultFrom")),
			SendgridApiKey:    conf.GetString("email.sendgridApiKey"),
			AmendmentNoticeTo: parseAddressList(conf.GetString("email.amendmentNoticeTo")),
		},
		Attendance: AttendanceConfig{
			SubmitTimeout: conf.GetDuration("attendance.submitTimeout"),
		},
	}
}

func parseAddress(s string) mail.Address {
	if addr, err := mail.ParseAddress(s); err == nil {
		return *addr
	}
	return mail.Address{Address: s}
}

// parseAddressList parses a comma separated list of addresses, skipping invalid ones.
func parseAddressList(s string) []mail.Address {
	s = CleanString(s)
	if s == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		log.Printf("config: invalid address list %q: %v", s, err)
		return nil
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs
}
