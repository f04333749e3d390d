package redis

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("redis",
	fx.Provide(NewRedisClient),
	fx.Invoke(func(lc fx.Lifecycle, client *RedisClient) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}),
)
