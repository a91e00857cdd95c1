package tax

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"innkeeper/internal/domain/shared/money"
)

var (
	ErrRuleNotFound      = errors.New("tax: rule not found")
	ErrGroupNotFound     = errors.New("tax: group not found")
	ErrCrossHotelRule    = errors.New("tax: rule belongs to a different hotel than the group")
	ErrInvalidRuleValue  = errors.New("tax: rule value must be non-negative")
	ErrInvalidRuleType   = errors.New("tax: unknown rule type")
	ErrInvalidRuleTarget = errors.New("tax: unknown rule application target")
	ErrEmptyGroup        = errors.New("tax: group requires at least one rule")
)

type RuleType string

const (
	Percentage RuleType = "PERCENTAGE"
	Fixed      RuleType = "FIXED"
)

type ApplicableOn string

const (
	OnRoomRate    ApplicableOn = "ROOM_RATE"
	OnTotalAmount ApplicableOn = "TOTAL_AMOUNT"
)

// Rule is a single named tax levied on a reservation. The code is generated
// once at creation and never changes, even when staff rename the rule.
type Rule struct {
	ID           string
	HotelID      string
	Name         string
	Code         string
	Type         RuleType
	Value        float64
	ApplicableOn ApplicableOn
	ValidFrom    time.Time
	ValidTo      time.Time
	Region       string
	Priority     int
}

func (r Rule) Validate() error {
	if r.Value < 0 {
		return ErrInvalidRuleValue
	}
	switch r.Type {
	case Percentage, Fixed:
	default:
		return ErrInvalidRuleType
	}
	switch r.ApplicableOn {
	case OnRoomRate, OnTotalAmount:
	default:
		return ErrInvalidRuleTarget
	}
	return nil
}

// NewRule builds a rule with a generated immutable code.
func NewRule(hotelID, name string, typ RuleType, value float64, on ApplicableOn) (Rule, error) {
	r := Rule{
		ID:           uuid.NewString(),
		HotelID:      hotelID,
		Name:         name,
		Code:         "TAX-" + strings.ToUpper(uuid.NewString()[:8]),
		Type:         typ,
		Value:        value,
		ApplicableOn: on,
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Group is a named, ordered composition of rules for one hotel.
type Group struct {
	ID       string
	HotelID  string
	Name     string
	Code     string
	RuleIDs  []string
	IsActive bool
}

// NewGroup validates that every referenced rule belongs to the group's hotel
// before the group may be persisted. Cross-tenant references are rejected
// outright, not filtered.
func NewGroup(hotelID, name string, rules []Rule) (Group, error) {
	if len(rules) == 0 {
		return Group{}, ErrEmptyGroup
	}
	g := Group{
		ID:       uuid.NewString(),
		HotelID:  hotelID,
		Name:     name,
		Code:     "TXG-" + strings.ToUpper(uuid.NewString()[:8]),
		IsActive: true,
	}
	for _, r := range rules {
		if r.HotelID != hotelID {
			return Group{}, ErrCrossHotelRule
		}
		g.RuleIDs = append(g.RuleIDs, r.ID)
	}
	return g, nil
}

type Repository interface {
	SaveRule(ctx context.Context, rule Rule) error
	RuleByID(ctx context.Context, id string) (*Rule, error)
	RulesByIDs(ctx context.Context, ids []string) ([]Rule, error)
	DeleteRule(ctx context.Context, id string) error
	SaveGroup(ctx context.Context, group Group) error
	GroupByID(ctx context.Context, id string) (*Group, error)
}

// Line is one evaluated entry of a reservation's tax breakdown.
type Line struct {
	Name       string
	Type       RuleType
	Percentage float64
	Amount     float64
}

// Evaluation is the ordered tax breakdown plus its total.
type Evaluation struct {
	Lines    []Line
	TotalTax float64
}

// Evaluate computes the tax breakdown for a reservation against a group's
// rules in group order. Percentage rules on ROOM_RATE apply to basePrice,
// on TOTAL_AMOUNT to totalPrice; fixed rules contribute their literal value.
// Amounts are rounded to two decimals per line.
func Evaluate(rules []Rule, basePrice, totalPrice float64) Evaluation {
	var ev Evaluation
	for _, r := range rules {
		line := Line{Name: r.Name, Type: r.Type}
		switch r.Type {
		case Percentage:
			line.Percentage = r.Value
			target := basePrice
			if r.ApplicableOn == OnTotalAmount {
				target = totalPrice
			}
			line.Amount = money.Percent(target, r.Value)
		case Fixed:
			line.Amount = money.Round2(r.Value)
		}
		ev.Lines = append(ev.Lines, line)
		ev.TotalTax = money.Round2(ev.TotalTax + line.Amount)
	}
	return ev
}

// EvaluateGroup loads a group's rules and evaluates them. A missing group is
// not an error for pricing: the caller is expected to treat ErrGroupNotFound
// as zero tax.
func EvaluateGroup(ctx context.Context, repo Repository, groupID string, basePrice, totalPrice float64) (Evaluation, error) {
	group, err := repo.GroupByID(ctx, groupID)
	if err != nil {
		return Evaluation{}, err
	}
	if !group.IsActive {
		return Evaluation{}, nil
	}
	rules, err := repo.RulesByIDs(ctx, group.RuleIDs)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(rules, basePrice, totalPrice), nil
}
