package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"innkeeper/internal/app/uow"
	domaininventory "innkeeper/internal/domain/inventory"
	domainpromo "innkeeper/internal/domain/promo"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
	domaintax "innkeeper/internal/domain/tax"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	InventoryRepo domaininventory.Ledger
	RatePlanRepo  domainrateplan.Store
	TaxRepo       domaintax.Repository
	PromoRepo     domainpromo.Repository
	CouponRepo    domainpromo.CouponRepository
	ProviderRepo  domainprovider.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. All promo consumption runs
// through here: the counter increment and the usage insert share the session.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:        f.DB,
		session:   session,
		inventory: f.InventoryRepo,
		ratePlans: f.RatePlanRepo,
		taxes:     f.TaxRepo,
		promos:    f.PromoRepo,
		coupons:   f.CouponRepo,
		providers: f.ProviderRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for
// downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
