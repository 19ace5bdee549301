// Package config holds the settings of the fairhire CLI and server.
//
// A Config is built once at start-up from defaults, an optional .fairhire
// YAML file, environment variables and command line flags, in that order of
// precedence, and is then passed explicitly to the components that need it.
package config
