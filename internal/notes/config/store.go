package config

// Backend - тип хранилища заметок.
type Backend string

// Поддерживаемые хранилища.
const (
	BackendPostgres Backend = "postgres"
	BackendDynamoDB Backend = "dynamodb"
	BackendMemory   Backend = "memory"
)

// Valid сообщает, поддерживается ли хранилище.
func (b Backend) Valid() bool {
	switch b {
	case BackendPostgres, BackendDynamoDB, BackendMemory:
		return true
	}
	return false
}

// StoreConfig выбирает хранилище заметок.
type StoreConfig struct {
	Backend Backend `yaml:"backend" env:"NOTES_STORE_BACKEND" env-default:"postgres"`
}
