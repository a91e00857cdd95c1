package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domaininventory "innkeeper/internal/domain/inventory"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
	"innkeeper/internal/domain/shared/staynights"
	domaintax "innkeeper/internal/domain/tax"
)

// InventoryLedger is an in-memory ledger for demos and tests. Conditional
// mutations take the same guard the Mongo implementation enforces with
// filtered updates.
type InventoryLedger struct {
	mu    sync.RWMutex
	cells map[domaininventory.Key]domaininventory.Record
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{cells: make(map[domaininventory.Key]domaininventory.Record)}
}

func (l *InventoryLedger) Upsert(ctx context.Context, key domaininventory.Key, counts domaininventory.Counts, sourceName string, epoch int64) error {
	if err := counts.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cells[key] = domaininventory.Record{
		HotelCode:    key.HotelCode,
		RoomTypeCode: key.RoomTypeCode,
		Date:         key.Date,
		Available:    counts.Available,
		Sold:         counts.Sold,
		Blocked:      counts.Blocked,
		SourceName:   sourceName,
		Epoch:        epoch,
	}
	return nil
}

func (l *InventoryLedger) ByDate(ctx context.Context, key domaininventory.Key, epoch int64) (*domaininventory.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.cells[key]
	if !ok || rec.Epoch != epoch {
		return nil, domaininventory.ErrRecordNotFound
	}
	out := rec
	return &out, nil
}

func (l *InventoryLedger) RangeByRoomType(ctx context.Context, hotel, roomType string, start, end time.Time, epoch int64) ([]domaininventory.Record, error) {
	start = staynights.Midnight(start)
	end = staynights.Midnight(end)
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domaininventory.Record
	for _, rec := range l.cells {
		if rec.HotelCode != hotel || rec.RoomTypeCode != roomType || rec.Epoch != epoch {
			continue
		}
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (l *InventoryLedger) Reserve(ctx context.Context, key domaininventory.Key, rooms int, epoch int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.cells[key]
	if !ok || rec.Epoch != epoch {
		return domaininventory.ErrRecordNotFound
	}
	if rec.Available < rooms {
		return domaininventory.ErrInsufficientRooms
	}
	rec.Available -= rooms
	rec.Sold += rooms
	l.cells[key] = rec
	return nil
}

func (l *InventoryLedger) ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int64
	for key, rec := range l.cells {
		if rec.HotelCode == hotel && rec.Epoch < keepEpoch {
			delete(l.cells, key)
			removed++
		}
	}
	return removed, nil
}

// RatePlanStore keeps charges in memory keyed by the natural tuple.
type RatePlanStore struct {
	mu    sync.RWMutex
	cells map[domainrateplan.Key]domainrateplan.Charge
}

func NewRatePlanStore() *RatePlanStore {
	return &RatePlanStore{cells: make(map[domainrateplan.Key]domainrateplan.Charge)}
}

func (s *RatePlanStore) Upsert(ctx context.Context, key domainrateplan.Key, charge domainrateplan.Charge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[key] = charge
	return nil
}

func (s *RatePlanStore) ChargesForDate(ctx context.Context, hotel, roomType string, date time.Time, epoch int64) ([]domainrateplan.Charge, error) {
	date = staynights.Midnight(date)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domainrateplan.Charge
	for _, c := range s.cells {
		if c.HotelCode == hotel && c.RoomTypeCode == roomType && c.Epoch == epoch && c.Date.Equal(date) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RatePlanCode < out[j].RatePlanCode })
	return out, nil
}

func (s *RatePlanStore) ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, c := range s.cells {
		if c.HotelCode == hotel && c.Epoch < keepEpoch {
			delete(s.cells, key)
			removed++
		}
	}
	return removed, nil
}

// TaxRepository stores rules and groups in memory.
type TaxRepository struct {
	mu     sync.RWMutex
	rules  map[string]domaintax.Rule
	groups map[string]domaintax.Group
}

func NewTaxRepository() *TaxRepository {
	return &TaxRepository{
		rules:  make(map[string]domaintax.Rule),
		groups: make(map[string]domaintax.Group),
	}
}

func (r *TaxRepository) SaveRule(ctx context.Context, rule domaintax.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *TaxRepository) RuleByID(ctx context.Context, id string) (*domaintax.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, domaintax.ErrRuleNotFound
	}
	out := rule
	return &out, nil
}

func (r *TaxRepository) RulesByIDs(ctx context.Context, ids []string) ([]domaintax.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domaintax.Rule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := r.rules[id]; ok {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *TaxRepository) DeleteRule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return domaintax.ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

func (r *TaxRepository) SaveGroup(ctx context.Context, group domaintax.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group
	return nil
}

func (r *TaxRepository) GroupByID(ctx context.Context, id string) (*domaintax.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, ok := r.groups[id]
	if !ok {
		return nil, domaintax.ErrGroupNotFound
	}
	out := group
	return &out, nil
}

// ProviderRepository tracks hotel-to-provider assignments and source epochs.
type ProviderRepository struct {
	mu        sync.RWMutex
	providers map[string]domainprovider.DataSourceProvider
	states    map[string]domainprovider.SourceState
}

func NewProviderRepository() *ProviderRepository {
	return &ProviderRepository{
		providers: make(map[string]domainprovider.DataSourceProvider),
		states:    make(map[string]domainprovider.SourceState),
	}
}

func (r *ProviderRepository) ByHotel(ctx context.Context, hotelCode string) (*domainprovider.DataSourceProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[hotelCode]
	if !ok {
		return nil, domainprovider.ErrProviderNotFound
	}
	out := p
	return &out, nil
}

func (r *ProviderRepository) SourceState(ctx context.Context, hotelCode string) (domainprovider.SourceState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[hotelCode]
	if !ok {
		return domainprovider.SourceState{HotelCode: hotelCode}, nil
	}
	return state, nil
}

func (r *ProviderRepository) SwapSource(ctx context.Context, hotelCode, sourceName string) (domainprovider.SourceState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := r.states[hotelCode]
	state.HotelCode = hotelCode
	state.SourceName = sourceName
	state.Epoch++
	r.states[hotelCode] = state
	return state, nil
}

func (r *ProviderRepository) AssignProvider(ctx context.Context, hotelCode string, p domainprovider.DataSourceProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[hotelCode] = p
	return nil
}

var (
	_ domaininventory.Ledger    = (*InventoryLedger)(nil)
	_ domainrateplan.Store      = (*RatePlanStore)(nil)
	_ domaintax.Repository      = (*TaxRepository)(nil)
	_ domainprovider.Repository = (*ProviderRepository)(nil)
)
