// Package config provides configuration for a11yscan.
//
// Settings come from four places, later ones winning: built-in defaults
// (NewConfig), the .a11yscan YAML file (LoadConfigFile, File.Apply), the
// environment (Config.ApplyEnv, optionally fed by a .env file through
// LoadDotEnv) and CLI flags. Gateway credentials and the SMTP password are
// read from the environment only.
package config
