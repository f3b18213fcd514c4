// Command gantry is the CLI and daemon entry point. The serve subcommand
// runs the supervisor and job bridge in the foreground; the remaining
// subcommands talk to a running daemon over its HTTP API.
package main
