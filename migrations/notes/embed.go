// Package notes встраивает SQL-миграции сервиса заметок.
package notes

import "embed"

// FS содержит файлы миграций.
//
//go:embed *.sql
var FS embed.FS

// Dir - каталог миграций внутри FS.
const Dir = "."
