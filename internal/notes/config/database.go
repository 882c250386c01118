package config

import (
	"fmt"
	"net/url"
	"time"

	"notecache/pkg/db/postgres"
)

// PostgresConfig содержит настройки подключения к базе данных.
type PostgresConfig struct {
	Host            string        `yaml:"host" env:"NOTES_POSTGRES_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"NOTES_POSTGRES_PORT" env-default:"5433"`
	User            string        `yaml:"user" env:"NOTES_POSTGRES_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"NOTES_POSTGRES_PASSWORD" env-default:"postgres"`
	Database        string        `yaml:"database" env:"NOTES_POSTGRES_DB" env-default:"notes"`
	MinConn         int           `yaml:"min_conn" env:"NOTES_POSTGRES_MIN_CONN" env-default:"1"`
	MaxConn         int           `yaml:"max_conn" env:"NOTES_POSTGRES_MAX_CONN" env-default:"10"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"NOTES_POSTGRES_MAX_CONN_LIFETIME" env-default:"1h"`
}

// GetDSN возвращает строку подключения к Postgres.
func (p *PostgresConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// GetConnectionURL возвращает URL-строку подключения для миграций.
func (p *PostgresConfig) GetConnectionURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Options переводит настройки в параметры пула.
func (p *PostgresConfig) Options() postgres.Options {
	return postgres.Options{
		DSN:             p.GetDSN(),
		MinConns:        p.MinConn,
		MaxConns:        p.MaxConn,
		MaxConnLifetime: p.MaxConnLifetime,
	}
}
