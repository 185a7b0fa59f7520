package router

import "go.uber.org/fx"

// Module provides the HTTP router to the fx runtime.
var Module = fx.Provide(Setup)
