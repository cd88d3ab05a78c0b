// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
// Each dialect keeps its own directory because column types differ.
package migrations

import (
	"embed"
	"io/fs"
)

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Postgres returns the migrations for the Postgres dialect, rooted so that
// goose.NewProvider finds the files at the top level.
func Postgres() fs.FS {
	return sub("postgres")
}

// SQLite returns the migrations for the SQLite dialect.
func SQLite() fs.FS {
	return sub("sqlite")
}

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		// Only reachable if the embed pattern above is changed.
		panic("migrations: " + err.Error())
	}
	return f
}
