// Package process runs installed executables and manages their processes.
//
// Exec runs a command with a timeout and captures its output and exit code.
// Terminate kills running processes by executable name before a new version
// is published, for tools that must not keep running across an upgrade.
package process
