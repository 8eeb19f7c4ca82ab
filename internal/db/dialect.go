package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// JSONExtractTextExpr returns a SQL expression extracting a JSON field as text.
func JSONExtractTextExpr(conn *gorm.DB, column, key string) string {
	if IsSQLite(conn) {
		return fmt.Sprintf("json_extract(%s, '$.%s')", column, key)
	}
	return fmt.Sprintf("%s->>'%s'", column, key)
}

// TruncateTimeExpr returns a SQL expression bucketing column by unit (day, week, month).
func TruncateTimeExpr(conn *gorm.DB, column, unit string) string {
	if IsSQLite(conn) {
		switch unit {
		case "month":
			return fmt.Sprintf("strftime('%%Y-%%m-01', %s)", column)
		case "week":
			return fmt.Sprintf("date(%s, 'weekday 0', '-6 days')", column)
		default:
			return fmt.Sprintf("date(%s)", column)
		}
	}
	return fmt.Sprintf("to_char(date_trunc('%s', %s), 'YYYY-MM-DD')", unit, column)
}
