package transform

import "go.uber.org/fx"

// Module provides the shared Engine.
var Module = fx.Provide(NewEngine)
