package lib

import (
	"crypto/tls"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func SetRedis(customClient *redis.Client) {
	redisClient = customClient
}

// Redis returns the shared client for the rate-limit store. The client is
// lazy: connection failures surface on first use, where the limiter handles
// them by failing open.
func Redis() *redis.Client {
	if redisClient == nil {
		config := GetConfig()
		opts, err := redis.ParseURL(config.Settings.Redis.URI)
		if err != nil {
			panic(err)
		}
		if config.Settings.Redis.SSL && opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
	}
	return redisClient
}
