// Package config provides configuration loading, merging, and validation
// facilities for the launcher.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Built-in defaults
//  2. JSON or YAML config file
//  3. Environment variables (HRL_ prefix)
//  4. Command-line flags bound with [BindFlags]
//
// [GetServerConfig], [GetDaemonConfig] and [GetAdminConfig] return the view
// each launcher role needs.
package config
