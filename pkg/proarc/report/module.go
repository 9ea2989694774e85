package report

import "go.uber.org/fx"

// Module provides the batch report writer.
var Module = fx.Provide(NewWriter)
