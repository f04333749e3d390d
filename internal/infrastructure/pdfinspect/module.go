package pdfinspect

import (
	"go.uber.org/fx"

	"contrato-firma/internal/selector"
)

var Module = fx.Module("pdfinspect",
	fx.Provide(NewInspector),
	fx.Provide(func(i *Inspector) selector.Inspector {
		return i
	}),
)
