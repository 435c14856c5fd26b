package config

import "fmt"

// ConfigError reports a configuration file that could not be located,
// decrypted, parsed or validated. No directory contact happens after it.
type ConfigError struct {
	Path string // Location of the configuration, if known
	Op   string // Step that failed: locate, decrypt, parse, secret, validate
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(path, op string, err error) *ConfigError {
	return &ConfigError{Path: path, Op: op, Err: err}
}
