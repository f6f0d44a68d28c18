// Package config loads the YAML configuration for a fedistream listener.
package config
