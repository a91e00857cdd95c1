package tax

import (
	"context"

	"innkeeper/internal/app/queries"
	"innkeeper/internal/app/uow"
	domaintax "innkeeper/internal/domain/tax"
)

const groupRulesKey = "tax.group_rules"

type GroupRulesQuery struct {
	GroupID string
}

func (q GroupRulesQuery) Key() string { return groupRulesKey }

type GroupRulesResult struct {
	Group domaintax.Group  `json:"group"`
	Rules []domaintax.Rule `json:"rules"`
}

// GroupRulesHandler resolves a group and its rules in group order.
type GroupRulesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GroupRulesHandler) Handle(ctx context.Context, q GroupRulesQuery) (*GroupRulesResult, error) {
	unit, managed, done, err := ensureUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if managed {
		defer done.rollbackUnlessCommitted()
	}
	ctx = done.ctx

	group, err := unit.Taxes().GroupByID(ctx, q.GroupID)
	if err != nil {
		return nil, err
	}
	rules, err := unit.Taxes().RulesByIDs(ctx, group.RuleIDs)
	if err != nil {
		return nil, err
	}
	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		done.committed = true
	}
	return &GroupRulesResult{Group: *group, Rules: rules}, nil
}

var _ queries.Handler[GroupRulesQuery, *GroupRulesResult] = (*GroupRulesHandler)(nil)
