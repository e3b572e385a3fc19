// Package monitoring provides the replaceable diagnostic logger used by
// the tracking core.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// but may be replaced by SetLogger; tests redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf logs a condition worth operator attention. It shares the Logf
// sink so redirecting one redirects both.
func Warnf(format string, v ...interface{}) {
	Logf("WARN: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
