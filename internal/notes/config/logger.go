package config

import (
	"strings"

	"notecache/pkg/logger"
)

// LoggingConfig задает уровень и формат логов сервиса заметок.
// Mode production включает JSON-вывод, любое другое значение - консольный.
type LoggingConfig struct {
	Level string `yaml:"level" env:"NOTES_LOGGER_LEVEL" env-default:"info"`
	Mode  string `yaml:"mode" env:"NOTES_LOGGER_MODE" env-default:"development"`
}

// GetEnvironment переводит NOTES_LOGGER_MODE в режим logger без учета регистра.
func (l *LoggingConfig) GetEnvironment() logger.Environment {
	if strings.EqualFold(strings.TrimSpace(l.Mode), string(logger.Production)) {
		return logger.Production
	}
	return logger.Development
}
