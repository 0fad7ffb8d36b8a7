// Package config defines the settings of gmpublish and workshop-gateway.
//
// Publisher settings are read with viper from an optional YAML file and
// GMPUBLISH_* environment variables, since the publisher CLI accepts only the
// account name and password. Gateway settings, including its accounts, are
// loaded, validated and saved as YAML.
package config
