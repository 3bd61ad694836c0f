// Package config defines the runtime configuration of geoprov.
//
// Configuration is read from an optional YAML file (geoprov.yaml by default,
// discovered by walking up from the working directory) and then overridden
// by environment variables, so secrets can live in the environment or a
// .env file while the ledger layout lives in version control.
//
// [Config.Validate] reports missing ledger access settings as configuration
// errors; callers treat them as fatal before any candidate is processed.
package config
