package memory

import (
	"context"
	"errors"

	"innkeeper/internal/app/uow"
	domaininventory "innkeeper/internal/domain/inventory"
	domainpromo "innkeeper/internal/domain/promo"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
	domaintax "innkeeper/internal/domain/tax"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	InventoryRepo domaininventory.Ledger
	RatePlanRepo  domainrateplan.Store
	TaxRepo       domaintax.Repository
	PromoRepo     domainpromo.Repository
	CouponRepo    domainpromo.CouponRepository
	ProviderRepo  domainprovider.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports; the conditional guards
// inside the repositories carry the concurrency invariants.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.InventoryRepo == nil || f.RatePlanRepo == nil || f.TaxRepo == nil || f.PromoRepo == nil || f.ProviderRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		inventory: f.InventoryRepo,
		ratePlans: f.RatePlanRepo,
		taxes:     f.TaxRepo,
		promos:    f.PromoRepo,
		coupons:   f.CouponRepo,
		providers: f.ProviderRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	inventory domaininventory.Ledger
	ratePlans domainrateplan.Store
	taxes     domaintax.Repository
	promos    domainpromo.Repository
	coupons   domainpromo.CouponRepository
	providers domainprovider.Repository
}

func (u *Unit) Inventory() domaininventory.Ledger {
	return u.inventory
}

func (u *Unit) RatePlans() domainrateplan.Store {
	return u.ratePlans
}

func (u *Unit) Taxes() domaintax.Repository {
	return u.taxes
}

func (u *Unit) Promos() domainpromo.Repository {
	return u.promos
}

func (u *Unit) Coupons() domainpromo.CouponRepository {
	return u.coupons
}

func (u *Unit) Providers() domainprovider.Repository {
	return u.providers
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
