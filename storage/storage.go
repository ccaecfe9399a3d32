// Package storage opens the persistence backend selected by the configuration.
package storage

import (
	"github.com/pkg/errors"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/store"
	"github.com/saber-pedagogico/saber/storage/filekv"
	"github.com/saber-pedagogico/saber/storage/memkv"
	"github.com/saber-pedagogico/saber/storage/rediskv"
	"github.com/saber-pedagogico/saber/storage/sqlkv"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = sqlkv.DriverPostgres
	DriverSQLite   = sqlkv.DriverSQLite
)

// Open returns the configured store.Storage. Callers close it through store.Store.Close.
func Open(conf core.StorageConfig) (store.Storage, error) {
	switch conf.Driver {
	case DriverMemory:
		return memkv.New(), nil
	case DriverFile, "":
		return filekv.New(conf.Dir)
	case DriverRedis:
		return rediskv.Open(rediskv.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
			Prefix:   conf.KeyPrefix,
			Timeout:  conf.Timeout,
		})
	case DriverPostgres, DriverSQLite:
		dsn := conf.DSN
		if dsn == "" && conf.Driver == DriverSQLite {
			dsn = "saber.db"
		}
		return sqlkv.Open(conf.Driver, dsn)
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Driver)
	}
}
