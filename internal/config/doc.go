// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, a .env file, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > .env file > Defaults. It exposes
// strongly typed settings, including the initial slab and piece list of the
// session, to the rest of the application.
package config
