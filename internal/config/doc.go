// Package config loads taskrun runtime settings.
//
// Values come from built-in defaults, an optional YAML file and environment
// variables prefixed with TASKRUN_, in increasing order of precedence. Nested
// keys map to environment names by replacing dots with underscores, so
// pool.queue_size is read from TASKRUN_POOL_QUEUE_SIZE.
//
// The loaded Config is validated with struct tags before it is returned.
package config
