// Package monitoring carries the process-wide diagnostic logger used by
// the replay engine and its stores.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf and may be swapped with SetLogger; the engine only logs
// degradation events (omitted gates, discarded samples), never per-tick
// traffic.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil f installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Silence mutes the logger and returns a function restoring the
// previous one. Intended for tests.
func Silence() func() {
	prev := Logf
	Logf = func(string, ...interface{}) {}
	return func() { Logf = prev }
}
