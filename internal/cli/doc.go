// Package cli implements userdb, the administration tool for the user
// directory database.
//
// Every invocation opens the database file named by the configuration
// (the same -c/-f/-n flags and JSON file as the server), runs one command
// and exits:
//
//	userdb [global flags] <command> [command flags]
//
// Commands: list, show, create, login, reset, passwd, delete, backup,
// reset-db, version, help.
package cli
