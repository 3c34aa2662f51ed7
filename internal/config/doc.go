// Package config loads the application configuration from environment
// variables (SALES_ prefix) and an optional YAML file, and resolves the
// directory layout every other package reads paths from. File values
// override what the environment pass produced; unset fields fall back to
// the struct tag defaults.
package config
