package db

import (
	"errors"
	"fmt"
)

const (
	DEFAULT_TIMEOUT           = 30
	DEFAULT_IDLE_CONN_TIMEOUT = 45
	DEFAULT_MAX_POOL_SIZE     = 8
)

var ErrMissingDBCredentials = errors.New("couldn't read DB credentials")

// ToDBConfig builds the connection settings from the yaml section. Zero values of the numeric
// settings fall back to defaults.
func (c DBConfigYaml) ToDBConfig() (DBConfig, error) {
	if c.ConnectionStr == "" || c.Username == "" || c.Password == "" {
		return DBConfig{}, ErrMissingDBCredentials
	}
	URI := fmt.Sprintf(`mongodb%s://%s:%s@%s`, c.ConnectionPrefix, c.Username, c.Password, c.ConnectionStr)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	idleConnTimeout := c.IdleConnTimeout
	if idleConnTimeout <= 0 {
		idleConnTimeout = DEFAULT_IDLE_CONN_TIMEOUT
	}
	maxPoolSize := c.MaxPoolSize
	if maxPoolSize <= 0 {
		maxPoolSize = DEFAULT_MAX_POOL_SIZE
	}

	return DBConfig{
		URI:              URI,
		DBNamePrefix:     c.DBNamePrefix,
		Timeout:          timeout,
		NoCursorTimeout:  c.UseNoCursorTimeout,
		MaxPoolSize:      uint64(maxPoolSize),
		IdleConnTimeout:  idleConnTimeout,
		RunIndexCreation: c.RunIndexCreation,
		UseTransactions:  c.UseTransactions,
	}, nil
}
