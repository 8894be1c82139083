package unitledgerservice

import (
	"log/slog"

	httpadapter "rentshare/contexts/asset-finance/unit-ledger-service/adapters/http"
	"rentshare/contexts/asset-finance/unit-ledger-service/adapters/memory"
	"rentshare/contexts/asset-finance/unit-ledger-service/application"
	"rentshare/contexts/asset-finance/unit-ledger-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Repository    ports.Repository
	Tx            ports.UnitOfWork
	MintAuthority string
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Repo:          deps.Repository,
		Tx:            deps.Tx,
		MintAuthority: deps.MintAuthority,
		Logger:        deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

func NewInMemoryModule(mintAuthority string, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:    store,
		Tx:            store,
		MintAuthority: mintAuthority,
		Logger:        logger,
	})
	module.Store = store
	return module
}
