// Package migrations embeds the SQL schema migrations for every supported database driver.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per dialect: sqlite3, postgresql and mysql.
//
//go:embed sqlite3/*.sql postgresql/*.sql mysql/*.sql
var FS embed.FS

// Dir returns the migrations directory for a database/sql driver name.
func Dir(driver string) string {
	switch driver {
	case "postgres":
		return "postgresql"
	case "mysql":
		return "mysql"
	default:
		return "sqlite3"
	}
}
