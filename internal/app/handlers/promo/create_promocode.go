package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/uow"
	domainpromo "innkeeper/internal/domain/promo"
)

const createPromocodeKey = "promo.create"

type CreatePromocodeCommand struct {
	CommandID         string
	PropertyCode      string
	Code              string
	DiscountType      string
	DiscountValue     float64
	ValidFrom         time.Time
	ValidTo           time.Time
	MinBookingAmount  float64
	MaxDiscountAmount float64
	UseLimit          int
	UsageLimitPerUser int
}

func (c CreatePromocodeCommand) Key() string { return createPromocodeKey }

type CreatePromocodeResult struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

var (
	ErrDuplicateCode  = errors.New("promo: code already exists for property")
	ErrBadCommandData = errors.New("promo: invalid promocode definition")
)

type CreatePromocodeHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CreatePromocodeHandler) Handle(ctx context.Context, cmd CreatePromocodeCommand) (*CreatePromocodeResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" || cmd.DiscountValue <= 0 {
		return nil, ErrBadCommandData
	}
	var dtype domainpromo.DiscountType
	switch strings.ToLower(cmd.DiscountType) {
	case string(domainpromo.PercentageDiscount):
		dtype = domainpromo.PercentageDiscount
	case string(domainpromo.FlatDiscount):
		dtype = domainpromo.FlatDiscount
	default:
		return nil, ErrBadCommandData
	}

	if existing, err := unit.Promos().ByCode(ctx, cmd.PropertyCode, code); err == nil && existing != nil {
		return nil, ErrDuplicateCode
	}

	p := &domainpromo.Promocode{
		ID:                uuid.NewString(),
		PropertyCode:      cmd.PropertyCode,
		Code:              code,
		DiscountType:      dtype,
		DiscountValue:     cmd.DiscountValue,
		ValidFrom:         cmd.ValidFrom,
		ValidTo:           cmd.ValidTo,
		MinBookingAmount:  cmd.MinBookingAmount,
		MaxDiscountAmount: cmd.MaxDiscountAmount,
		UseLimit:          cmd.UseLimit,
		UsageLimitPerUser: cmd.UsageLimitPerUser,
		IsActive:          true,
	}
	if err := unit.Promos().Save(ctx, p); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CreatePromocodeResult{ID: p.ID, Code: p.Code}, nil
}

var _ commands.Handler[CreatePromocodeCommand, *CreatePromocodeResult] = (*CreatePromocodeHandler)(nil)
