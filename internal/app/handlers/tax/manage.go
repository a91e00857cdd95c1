package tax

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/app/commands"
	"innkeeper/internal/app/uow"
	domaintax "innkeeper/internal/domain/tax"
)

const (
	createRuleKey  = "tax.create_rule"
	createGroupKey = "tax.create_group"
)

var ErrUnitOfWorkRequired = errors.New("tax: unit of work required")

type CreateRuleCommand struct {
	CommandID    string
	HotelID      string
	Name         string
	Type         string
	Value        float64
	ApplicableOn string
	ValidFrom    time.Time
	ValidTo      time.Time
	Region       string
	Priority     int
}

func (c CreateRuleCommand) Key() string { return createRuleKey }

type CreateRuleResult struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type CreateRuleHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CreateRuleHandler) Handle(ctx context.Context, cmd CreateRuleCommand) (*CreateRuleResult, error) {
	unit, managed, done, err := ensureUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer done.rollbackUnlessCommitted()
	}
	ctx = done.ctx

	rule, err := domaintax.NewRule(cmd.HotelID, cmd.Name, domaintax.RuleType(cmd.Type), cmd.Value, domaintax.ApplicableOn(cmd.ApplicableOn))
	if err != nil {
		return nil, err
	}
	rule.ValidFrom = cmd.ValidFrom
	rule.ValidTo = cmd.ValidTo
	rule.Region = cmd.Region
	rule.Priority = cmd.Priority

	if err := unit.Taxes().SaveRule(ctx, rule); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		done.committed = true
	}
	return &CreateRuleResult{ID: rule.ID, Code: rule.Code}, nil
}

type CreateGroupCommand struct {
	CommandID string
	HotelID   string
	Name      string
	RuleIDs   []string
}

func (c CreateGroupCommand) Key() string { return createGroupKey }

type CreateGroupResult struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// CreateGroupHandler composes rules into a group. Rules referencing another
// hotel reject the whole group before persistence.
type CreateGroupHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CreateGroupHandler) Handle(ctx context.Context, cmd CreateGroupCommand) (*CreateGroupResult, error) {
	unit, managed, done, err := ensureUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer done.rollbackUnlessCommitted()
	}
	ctx = done.ctx

	rules, err := unit.Taxes().RulesByIDs(ctx, cmd.RuleIDs)
	if err != nil {
		return nil, err
	}
	if len(rules) != len(cmd.RuleIDs) {
		return nil, domaintax.ErrRuleNotFound
	}
	group, err := domaintax.NewGroup(cmd.HotelID, cmd.Name, rules)
	if err != nil {
		return nil, err
	}
	if err := unit.Taxes().SaveGroup(ctx, group); err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		done.committed = true
	}
	return &CreateGroupResult{ID: group.ID, Code: group.Code}, nil
}

// unitGuard keeps the managed-transaction bookkeeping in one place for the
// two handlers above.
type unitGuard struct {
	ctx       context.Context
	unit      uow.UnitOfWork
	committed bool
}

func (g *unitGuard) rollbackUnlessCommitted() {
	if !g.committed {
		_ = g.unit.Rollback(g.ctx)
	}
}

func ensureUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, bool, *unitGuard, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, false, &unitGuard{ctx: ctx, unit: unit}, nil
	}
	if factory == nil {
		return nil, false, nil, ErrUnitOfWorkRequired
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, false, nil, err
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	return unit, true, &unitGuard{ctx: ctx, unit: unit}, nil
}

var _ commands.Handler[CreateRuleCommand, *CreateRuleResult] = (*CreateRuleHandler)(nil)
var _ commands.Handler[CreateGroupCommand, *CreateGroupResult] = (*CreateGroupHandler)(nil)
