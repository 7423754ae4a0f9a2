// Package config provides the application configuration loader and the
// YAML-backed definition store for agents, tasks and agent tool bindings.
package config
