package storage

import (
	"log/slog"
	"strings"
)

// Open dispatches a connection string to the appropriate backend:
//
//	sqlite://path/to/file.db    -> SQLStore (sqlite3)
//	postgres://...              -> SQLStore (postgres)
//	mysql://...                 -> SQLStore (mysql)
//	mongodb://... or mongodb+srv://... -> MongoStore
//
// If the document backend cannot be dialed within its connect timeout,
// Open logs a warning and falls back to an embedded SQLite store at
// fallbackPath, so a transient Mongo outage degrades search quality
// rather than taking the whole memory layer down.
func Open(connectionString, fallbackPath string) (Store, error) {
	switch {
	case strings.HasPrefix(connectionString, "mongodb://"), strings.HasPrefix(connectionString, "mongodb+srv://"):
		store, err := NewMongoStore(connectionString, "memori")
		if err != nil {
			slog.Warn("mongo backend unavailable, falling back to embedded sqlite", "error", err)
			return NewSQLStore(SQLConfig{Driver: "sqlite", DSN: fallbackPath})
		}
		return store, nil

	case strings.HasPrefix(connectionString, "postgres://"), strings.HasPrefix(connectionString, "postgresql://"):
		return NewSQLStore(SQLConfig{Driver: "postgres", DSN: connectionString})

	case strings.HasPrefix(connectionString, "mysql://"):
		return NewSQLStore(SQLConfig{Driver: "mysql", DSN: strings.TrimPrefix(connectionString, "mysql://")})

	case strings.HasPrefix(connectionString, "sqlite://"):
		return NewSQLStore(SQLConfig{Driver: "sqlite", DSN: strings.TrimPrefix(connectionString, "sqlite://")})

	default:
		// Bare file path: treat as sqlite, matching
		// config.StorageConfig.ConnectionString's documented convention.
		return NewSQLStore(SQLConfig{Driver: "sqlite", DSN: connectionString})
	}
}
