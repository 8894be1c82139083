package rentdistributionservice

import (
	"log/slog"

	httpadapter "rentshare/contexts/asset-finance/rent-distribution-service/adapters/http"
	"rentshare/contexts/asset-finance/rent-distribution-service/adapters/memory"
	"rentshare/contexts/asset-finance/rent-distribution-service/application"
	"rentshare/contexts/asset-finance/rent-distribution-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Log     ports.DistributionLog
	Holders ports.HolderLedger
	Stats   ports.StatsStore
	Units   ports.UnitLedger
	Custody ports.CustodyAccount
	Outbox  ports.OutboxWriter
	Tx      ports.UnitOfWork
	Clock   ports.Clock
	IDGen   ports.IDGenerator

	DepositAuthority string
	Logger           *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Log:              deps.Log,
		Holders:          deps.Holders,
		Stats:            deps.Stats,
		Units:            deps.Units,
		Custody:          deps.Custody,
		Outbox:           deps.Outbox,
		Tx:               deps.Tx,
		Clock:            deps.Clock,
		IDGen:            deps.IDGen,
		DepositAuthority: deps.DepositAuthority,
		Logger:           deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
		Service: service,
	}
}

// NewInMemoryModule wires the engine against the memory store. The
// unit ledger is still an external dependency and must be supplied.
func NewInMemoryModule(units ports.UnitLedger, depositAuthority string, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Log:              store,
		Holders:          store,
		Stats:            store,
		Units:            units,
		Custody:          store,
		Outbox:           store,
		Tx:               store,
		Clock:            store,
		IDGen:            store,
		DepositAuthority: depositAuthority,
		Logger:           logger,
	})
	module.Store = store
	return module
}
