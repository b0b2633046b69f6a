// Package cli is the interactive gophauth command-line client.
//
// It opens the local SQLite store, restores a saved session if there is
// one and runs a small REPL over services.AuthService. A background
// watcher pings the server and shows online/offline in the prompt.
//
// Commands: register, login, logout, me, devices, revoke <id>, link,
// join <token|url>, delete-account, help, exit.
package cli
