// Package redis opens go-redis clients with retry and health checking.
//
// The client backs the distributed segmentation lease (see core/lease):
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	locker := lease.NewRedis(client, lease.WithKeyPrefix(cfg.LeaseKeyPrefix))
//
// Configuration is read from REDIS_URL, REDIS_RETRY_ATTEMPTS,
// REDIS_RETRY_INTERVAL, REDIS_CONNECT_TIMEOUT and REDIS_LEASE_KEY_PREFIX.
// Both redis:// and rediss:// URLs are accepted.
package redis
