package config

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

type Environment string

const (
	Live Environment = "live"
	Beta Environment = "beta"
	Dev  Environment = "dev"
)

type NewsdeskConfig struct {
	Env      Environment
	Addr     string
	BaseUrl  string
	LogLevel zerolog.Level
	Postgres PostgresConfig
	Auth     AuthConfig
	Presence PresenceConfig
	Email    EmailConfig
	Images   ImagesConfig
	Maps     MapsConfig
}

type PostgresConfig struct {
	User     string
	Password string
	Hostname string
	Port     int
	DbName   string
	LogLevel tracelog.LogLevel
	MinConn  int32
	MaxConn  int32
}

func (info PostgresConfig) DSN() string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s", info.User, info.Password, info.Hostname, info.Port, info.DbName)
}

type AuthConfig struct {
	JWTSecret       string
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type PresenceConfig struct {
	SweepInterval time.Duration
	StaleAfter    time.Duration
}

type EmailConfig struct {
	ServerAddress  string
	ServerPort     int
	MailerUsername string
	MailerPassword string
	FromAddress    string
	FromName       string
	ForceToAddress string
	AdminAddress   string
	FrontendUrl    string
}

// Configured reports whether an SMTP server is set. Without one, mail is
// rendered and logged instead of sent.
func (c EmailConfig) Configured() bool {
	return c.ServerAddress != ""
}

type ImagesConfig struct {
	Endpoint  string
	Region    string
	KeyID     string
	Secret    string
	Bucket    string
	PublicUrl string
}

func (c ImagesConfig) Configured() bool {
	return c.KeyID != "" && c.Bucket != ""
}

type MapsConfig struct {
	EmbedKey string
}
