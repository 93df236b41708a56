// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, mesh resilience constants, the registered backend
// services, and health check intervals.
package config
