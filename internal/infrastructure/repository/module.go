package repository

import (
	"go.uber.org/fx"

	"contrato-firma/internal/infrastructure/httpclient"
)

var Module = fx.Module("repository",
	fx.Provide(NewAPILogRepository),
	fx.Provide(NewOutcomeRepository),
	fx.Provide(func(repo APILogRepository) httpclient.APILogSaver {
		return repo
	}),
)
