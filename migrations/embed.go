// Package migrations embeds SQL migration files into the binary.
//
// This lets the core run its migrations without the SQL files being
// present on the filesystem.
package migrations

import (
	"embed"

	"github.com/nerrad567/mc-connect-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
