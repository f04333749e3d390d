package extraction

import "go.uber.org/fx"

var Module = fx.Module("extraction",
	fx.Provide(NewExtractor),
)
