package handler

import (
	"secretsanta/internal/app/exchange"
	"secretsanta/internal/configs"
)

// AppDeps bundles what the HTTP handlers need: the room registry and the
// application configuration.
type AppDeps struct {
	Registry *exchange.Registry
	Config   *configs.AppConfig
}
