package uow

import (
	"context"

	domaininventory "innkeeper/internal/domain/inventory"
	domainpromo "innkeeper/internal/domain/promo"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
	domaintax "innkeeper/internal/domain/tax"
)

// UnitOfWork coordinates repositories inside a transaction boundary. Promo
// consumption relies on it: the usage counter increment and the ledger row
// insert must commit or roll back together.
type UnitOfWork interface {
	Inventory() domaininventory.Ledger
	RatePlans() domainrateplan.Store
	Taxes() domaintax.Repository
	Promos() domainpromo.Repository
	Coupons() domainpromo.CouponRepository
	Providers() domainprovider.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
