// Package file provides the TOML-file-backed scope configuration store.
// Scope definitions, engine tuning and scheduler settings all live in a
// single config file, by default ~/.haven/config.toml.
package file
