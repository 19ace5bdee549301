package config

import "os"

// Environment variables that override the configuration file.
const (
	EnvStore    = "FAIRHIRE_STORE"
	EnvRedisURL = "REDIS_URL"
	EnvDBDir    = "FAIRHIRE_DB_DIR"
	EnvAddr     = "FAIRHIRE_ADDR"
)

// ApplyEnv overrides c with the environment variables that are set and non-empty.
// lookup is usually os.LookupEnv; nil means os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvStore, &c.Store)
	set(EnvRedisURL, &c.RedisURL)
	set(EnvDBDir, &c.DBDir)
	set(EnvAddr, &c.Addr)
}
