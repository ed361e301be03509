//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"webcontext/internal/domain"
	"webcontext/internal/infrastructure"
	"webcontext/internal/interfaces"
	"webcontext/internal/interfaces/httpserver/routes"
)

func CreateApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		domain.DomainProvider,
		infrastructure.InfrastructureProvider,
		routes.RoutesProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
