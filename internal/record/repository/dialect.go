package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// dialect captures what differs between the supported SQL databases.
type dialect struct {
	name string
	// bind rewrites ? placeholders into the driver's placeholder syntax.
	bind func(query string) string
	// encodeID converts an id into the value stored in the id column.
	encodeID func(id uuid.UUID) (any, error)
	// decodeID parses the raw id column value.
	decodeID func(raw []byte) (uuid.UUID, error)
	// isDuplicate reports whether err is a unique constraint violation.
	isDuplicate func(err error) bool
}

func identityBind(query string) string { return query }

func textID(id uuid.UUID) (any, error) { return id.String(), nil }

func parseTextID(raw []byte) (uuid.UUID, error) { return uuid.ParseBytes(raw) }

// sqliteDialect stores ids as canonical text.
var sqliteDialect = dialect{
	name:     "sqlite3",
	bind:     identityBind,
	encodeID: textID,
	decodeID: parseTextID,
	isDuplicate: func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	},
}

// postgresDialect uses the native UUID type and numbered placeholders.
var postgresDialect = dialect{
	name:     "postgres",
	bind:     numberedBind,
	encodeID: textID,
	decodeID: parseTextID,
	isDuplicate: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

// mysqlDialect stores ids as BINARY(16).
var mysqlDialect = dialect{
	name:     "mysql",
	bind:     identityBind,
	encodeID: func(id uuid.UUID) (any, error) { return id.MarshalBinary() },
	decodeID: func(raw []byte) (uuid.UUID, error) { return uuid.FromBytes(raw) },
	isDuplicate: func(err error) bool {
		var mysqlErr *mysql.MySQLError
		return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
	},
}

// numberedBind rewrites ? placeholders into $1, $2, ...
func numberedBind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
