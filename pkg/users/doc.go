// Package users bounds the cardinality of the per-user metric label.
//
// A Policy either consults an allowlist file (one user per line, '#'
// comments) that is reloaded on change through fsnotify, or admits the first
// N distinct users it sees. Users that are not admitted share the overflow
// label, "other" by default.
package users
