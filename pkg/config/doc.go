// Package config loads typed configuration from environment variables with
// caarlos0/env. Each package declares its own Config struct with env tags
// and the binary loads them through Load, which also picks up a local .env
// file in development.
package config
