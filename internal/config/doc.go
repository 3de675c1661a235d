// Package config loads dex-proxy settings from a TOML file and the environment.
//
// Values are layered: built-in defaults, then the file (a missing file is not
// an error), then environment variables. Durations are written as Go duration
// strings such as "100ms" or "5m".
package config
