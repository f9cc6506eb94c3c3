// Package config loads the control plane's ambient settings (request
// timeout, ring-buffer capacities, library/layout paths) from a global
// config file, a project-local config file, and environment overrides,
// merged in that precedence order.
//
// Files may be JSON or JSONC; comments are stripped before unmarshalling.
package config
