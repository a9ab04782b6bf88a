package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override Config.
const (
	EnvKeyBackend = "PSEUDOKIT_KEY_BACKEND"
	EnvRedisAddr  = "PSEUDOKIT_REDIS_ADDR"
	EnvDBDir      = "PSEUDOKIT_DB_DIR"
)

// LoadEnv applies overrides from the given dotenv files and then from the
// process environment, which wins. Missing files are skipped.
func (c *Config) LoadEnv(files ...string) error {
	vars := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		for k, v := range m {
			vars[k] = v
		}
	}
	for _, k := range []string{EnvKeyBackend, EnvRedisAddr, EnvDBDir} {
		if v, ok := os.LookupEnv(k); ok {
			vars[k] = v
		}
	}

	if v := vars[EnvKeyBackend]; v != "" {
		c.KeyBackend = v
	}
	if v := vars[EnvRedisAddr]; v != "" {
		c.RedisAddr = v
	}
	if v, ok := vars[EnvDBDir]; ok {
		c.DBDir = v
	}
	return nil
}
