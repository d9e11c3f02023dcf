package lib

import (
	"strconv"
	"time"

	hash "github.com/cespare/xxhash/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/storage/redis/v3"
)

// The resolver cache trades a bounded staleness window (the configured TTL)
// for fewer durable-store reads: a deactivated Api or revoked key can keep
// resolving from here for up to TTL seconds.

type CacheStorage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

var cacheStorage CacheStorage

func SetCacheStorage(s CacheStorage) {
	cacheStorage = s
}

func cache() CacheStorage {
	if cacheStorage == nil {
		config := GetConfig()
		cacheStorage = redis.New(redis.Config{
			URL: config.Settings.Redis.URI,
		})
	}
	return cacheStorage
}

func GetCache(key string) ([]byte, bool, error) {
	config := GetConfig()
	if !config.Settings.Cache.Enabled {
		return nil, false, nil
	}

	hashed := strconv.FormatUint(hash.Sum64String(key), 10)
	value, err := cache().Get(hashed)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, nil
	}
	return value, true, nil
}

func SetCache(key string, value []byte) error {
	config := GetConfig()
	if !config.Settings.Cache.Enabled {
		return nil
	}

	hashed := strconv.FormatUint(hash.Sum64String(key), 10)
	err := cache().Set(hashed, value, time.Duration(config.Settings.Cache.TTL)*time.Second)
	if err != nil {
		log.Warnw("cache write failed", "error", err)
		return err
	}
	return nil
}
