package http

import (
	"go.uber.org/fx"

	"contrato-firma/internal/delivery/http/handler"
	"contrato-firma/internal/delivery/http/router"
)

var Module = fx.Module("http",
	fx.Provide(
		handler.NewSessionHandler,
		handler.NewIdentityHandler,
		handler.NewHealthHandler,
		handler.NewLogHandler,
		router.NewRouter,
	),
)
