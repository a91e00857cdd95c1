package tax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rules  map[string]Rule
	groups map[string]Group
}

func (r *fakeRepo) SaveRule(ctx context.Context, rule Rule) error {
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRepo) RuleByID(ctx context.Context, id string) (*Rule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return &rule, nil
}

func (r *fakeRepo) RulesByIDs(ctx context.Context, ids []string) ([]Rule, error) {
	out := make([]Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := r.rules[id]; ok {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteRule(ctx context.Context, id string) error {
	delete(r.rules, id)
	return nil
}

func (r *fakeRepo) SaveGroup(ctx context.Context, group Group) error {
	r.groups[group.ID] = group
	return nil
}

func (r *fakeRepo) GroupByID(ctx context.Context, id string) (*Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return &group, nil
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rules: map[string]Rule{}, groups: map[string]Group{}}
}

func TestEvaluateAppliesRuleTargets(t *testing.T) {
	rules := []Rule{
		{Name: "VAT", Type: Percentage, Value: 10, ApplicableOn: OnRoomRate},
		{Name: "Service Charge", Type: Percentage, Value: 10, ApplicableOn: OnTotalAmount},
		{Name: "City Levy", Type: Fixed, Value: 15},
	}

	ev := Evaluate(rules, 200, 250)

	require.Len(t, ev.Lines, 3)
	require.InDelta(t, 20.0, ev.Lines[0].Amount, 1e-9)
	require.InDelta(t, 25.0, ev.Lines[1].Amount, 1e-9)
	require.InDelta(t, 15.0, ev.Lines[2].Amount, 1e-9)
	require.InDelta(t, 60.0, ev.TotalTax, 1e-9)
	// Lines come back in group order.
	require.Equal(t, "VAT", ev.Lines[0].Name)
	require.Equal(t, "City Levy", ev.Lines[2].Name)
}

func TestEvaluateRoundsPerLine(t *testing.T) {
	rules := []Rule{
		{Name: "Odd", Type: Percentage, Value: 7.5, ApplicableOn: OnRoomRate},
	}

	ev := Evaluate(rules, 99.99, 99.99)

	require.InDelta(t, 7.5, ev.Lines[0].Amount, 1e-9)
}

func TestNewRuleValidation(t *testing.T) {
	_, err := NewRule("h1", "VAT", Percentage, -1, OnRoomRate)
	require.ErrorIs(t, err, ErrInvalidRuleValue)

	_, err = NewRule("h1", "VAT", RuleType("COMPOUND"), 10, OnRoomRate)
	require.ErrorIs(t, err, ErrInvalidRuleType)

	_, err = NewRule("h1", "VAT", Percentage, 10, ApplicableOn("NET"))
	require.ErrorIs(t, err, ErrInvalidRuleTarget)

	r, err := NewRule("h1", "VAT", Percentage, 10, OnRoomRate)
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)
	require.Contains(t, r.Code, "TAX-")
}

func TestNewGroupRejectsCrossHotelRules(t *testing.T) {
	mine, err := NewRule("h1", "VAT", Percentage, 10, OnRoomRate)
	require.NoError(t, err)
	theirs, err := NewRule("h2", "VAT", Percentage, 10, OnRoomRate)
	require.NoError(t, err)

	_, err = NewGroup("h1", "Standard", []Rule{mine, theirs})
	require.ErrorIs(t, err, ErrCrossHotelRule)

	_, err = NewGroup("h1", "Standard", nil)
	require.ErrorIs(t, err, ErrEmptyGroup)

	g, err := NewGroup("h1", "Standard", []Rule{mine})
	require.NoError(t, err)
	require.True(t, g.IsActive)
	require.Equal(t, []string{mine.ID}, g.RuleIDs)
}

func TestEvaluateGroupPreservesRuleOrder(t *testing.T) {
	repo := newFakeRepo()
	first, _ := NewRule("h1", "VAT", Percentage, 10, OnRoomRate)
	second, _ := NewRule("h1", "City Levy", Fixed, 5, OnRoomRate)
	require.NoError(t, repo.SaveRule(context.Background(), first))
	require.NoError(t, repo.SaveRule(context.Background(), second))

	group, err := NewGroup("h1", "Standard", []Rule{first, second})
	require.NoError(t, err)
	require.NoError(t, repo.SaveGroup(context.Background(), group))

	ev, err := EvaluateGroup(context.Background(), repo, group.ID, 100, 100)
	require.NoError(t, err)
	require.Len(t, ev.Lines, 2)
	require.Equal(t, "VAT", ev.Lines[0].Name)
	require.InDelta(t, 15.0, ev.TotalTax, 1e-9)
}

func TestEvaluateGroupInactiveYieldsZero(t *testing.T) {
	repo := newFakeRepo()
	rule, _ := NewRule("h1", "VAT", Percentage, 10, OnRoomRate)
	require.NoError(t, repo.SaveRule(context.Background(), rule))

	group, err := NewGroup("h1", "Standard", []Rule{rule})
	require.NoError(t, err)
	group.IsActive = false
	require.NoError(t, repo.SaveGroup(context.Background(), group))

	ev, err := EvaluateGroup(context.Background(), repo, group.ID, 100, 100)
	require.NoError(t, err)
	require.Empty(t, ev.Lines)
	require.Zero(t, ev.TotalTax)
}

func TestEvaluateGroupMissing(t *testing.T) {
	repo := newFakeRepo()

	_, err := EvaluateGroup(context.Background(), repo, "nope", 100, 100)
	require.ErrorIs(t, err, ErrGroupNotFound)
}
