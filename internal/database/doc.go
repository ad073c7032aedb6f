// Package database provides SQLite-based storage of sniff reports.
//
// Every annotated file of a scan is stored with the run it belongs to, so
// later commands can print the last report of a file and compare two
// runs. The database is a single CGO-free SQLite file (modernc.org/sqlite)
// in the XDG data directory.
package database
