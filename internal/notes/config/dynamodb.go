package config

// DynamoDBConfig содержит настройки таблицы DynamoDB.
type DynamoDBConfig struct {
	Region   string `yaml:"region" env:"NOTES_DYNAMODB_REGION" env-default:"us-east-1"`
	Table    string `yaml:"table" env:"NOTES_DYNAMODB_TABLE" env-default:"notes"`
	Endpoint string `yaml:"endpoint" env:"NOTES_DYNAMODB_ENDPOINT" env-default:""`
}
