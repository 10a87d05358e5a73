// Package database opens the frontend's own SQLite database. It holds one
// table, the visitor sessions that back per-visitor storage such as the
// preferred view mode.
//
//	db, err := database.NewDatabase("./shelfront.db")
//	sqlDB, err := db.SQL()
//	sessions, err := auth.NewSessionManager(sqlDB, cfg.Session)
package database
