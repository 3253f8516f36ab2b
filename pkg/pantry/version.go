// Package pantry holds build metadata for the pantry module.
package pantry

// Version is the release version of the pantry CLI and server.
const Version = "0.1.0"

// ModulePath is the Go module path.
const ModulePath = "github.com/pantrywisely/pantry"
