// Package migrations embeds the run-history SQL migration files into
// the binary, so the schema travels with the executable and no SQL
// files need to be present on the target host.
package migrations

import (
	"embed"

	"github.com/demensdeum/coverseer/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Hand the embedded files to the database package, which owns the
	// migration engine but not the SQL.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files sit at the root of the embedded FS
}
