// Package config holds run-level settings and pseudonymization job files.
package config
