// Package catalog persists run history in SQLite.
//
// The Store records one row per processing run plus one row per exported
// file, giving the CLI a durable answer to what a past run produced and
// where it landed. Runs move from running to completed or failed; outputs
// reference their run and are removed with it.
//
// The database lives in the configured state directory and is an archive of
// past runs, not in-flight coordination state. Schema changes bump the
// version in schema.go; an existing catalog must then be deleted and rebuilt.
package catalog
