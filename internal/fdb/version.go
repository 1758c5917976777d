package fdb

// version is overridden at link time with -ldflags "-X fdb-go/internal/fdb.version=...".
var version = "0.1.0-dev"

// Version returns the library version string.
func Version() string { return version }
