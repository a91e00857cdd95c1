package provider

import (
	"context"
	"errors"
	"strings"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/uow"
	domainprovider "innkeeper/internal/domain/provider"
)

const assignProviderKey = "provider.assign"

type AssignProviderCommand struct {
	CommandID   string
	HotelCode   string
	Name        string
	Type        string
	IsActive    bool
	APIEndpoint string
}

func (c AssignProviderCommand) Key() string { return assignProviderKey }

type AssignProviderResult struct {
	HotelCode string `json:"hotel_code"`
	Name      string `json:"name"`
}

var (
	ErrUnitOfWorkRequired = errors.New("provider: unit of work required")
	ErrBadProviderType    = errors.New("provider: type must be PMS, CM or Internal")
)

// AssignProviderHandler binds a hotel to its system of record. The first ARI
// batch after a reassignment triggers the epoch swap, not this command.
type AssignProviderHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *AssignProviderHandler) Handle(ctx context.Context, cmd AssignProviderCommand) (*AssignProviderResult, error) {
	typ, err := parseSourceType(cmd.Type)
	if err != nil {
		return nil, err
	}
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	p := domainprovider.DataSourceProvider{
		Name:        strings.TrimSpace(cmd.Name),
		Type:        typ,
		IsActive:    cmd.IsActive,
		APIEndpoint: cmd.APIEndpoint,
	}
	if err := unit.Providers().AssignProvider(ctx, cmd.HotelCode, p); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &AssignProviderResult{HotelCode: cmd.HotelCode, Name: p.Name}, nil
}

func parseSourceType(raw string) (domainprovider.SourceType, error) {
	switch domainprovider.SourceType(strings.TrimSpace(raw)) {
	case domainprovider.TypePMS:
		return domainprovider.TypePMS, nil
	case domainprovider.TypeChannelManager:
		return domainprovider.TypeChannelManager, nil
	case domainprovider.TypeInternal:
		return domainprovider.TypeInternal, nil
	default:
		return "", ErrBadProviderType
	}
}

var _ commands.Handler[AssignProviderCommand, *AssignProviderResult] = (*AssignProviderHandler)(nil)
