// Package lofi is a small buffer-mediated production system.
//
// A model declares buffers, declarative memories seeded with chunks,
// and an ordered list of productions.  On each tick the first
// production whose conditions match the buffers fires.  Memory
// requests made on one tick are answered on the next.
//
// The engine is in package 'core', pattern matching is in 'match',
// and the command-line tool is in 'cmd/lofi'.  The barista scenario
// is in models/lofi-cafe.yaml.
package lofi
