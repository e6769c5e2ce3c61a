package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"LeetTracker/internal/domain"
	"LeetTracker/internal/ports"
)

// memStore is an in-memory RosterStore, MetadataStore and Ledger.
type memStore struct {
	mu           sync.Mutex
	identities   map[string]string
	destination  *domain.Destination
	metadata     map[string]domain.MetadataEntry
	observations map[domain.ObservationRecord]struct{}
	listErr      error
	saveErr      error
}

func newMemStore() *memStore {
	return &memStore{
		identities:   map[string]string{},
		metadata:     map[string]domain.MetadataEntry{},
		observations: map[domain.ObservationRecord]struct{}{},
	}
}

func (m *memStore) AddIdentity(_ context.Context, identity domain.TrackedIdentity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identity.Identifier]; ok {
		return false, nil
	}
	m.identities[identity.Identifier] = identity.DisplayName
	return true, nil
}

func (m *memStore) RemoveIdentity(_ context.Context, identifier string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[identifier]; !ok {
		return false, nil
	}
	delete(m.identities, identifier)
	return true, nil
}

func (m *memStore) ListIdentities(context.Context) ([]domain.TrackedIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.TrackedIdentity, 0, len(m.identities))
	for id, name := range m.identities {
		out = append(out, domain.TrackedIdentity{Identifier: id, DisplayName: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (m *memStore) RegisterDestination(_ context.Context, dest domain.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destination = &dest
	return nil
}

func (m *memStore) Destination(context.Context) (domain.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destination == nil {
		return domain.Destination{}, domain.ErrUnregistered
	}
	return *m.destination, nil
}

func (m *memStore) LookupMetadata(_ context.Context, itemKey string) (domain.MetadataEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.metadata[itemKey]
	return entry, ok, nil
}

func (m *memStore) SaveMetadata(_ context.Context, entry domain.MetadataEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.metadata[entry.ItemKey] = entry
	return nil
}

func (m *memStore) RecordObservation(_ context.Context, rec domain.ObservationRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Day = domain.DayOf(rec.Day)
	if _, ok := m.observations[rec]; ok {
		return false, nil
	}
	m.observations[rec] = struct{}{}
	return true, nil
}

func (m *memStore) ObservationsForDay(_ context.Context, day time.Time) ([]domain.ReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []domain.ReportRow
	for rec := range m.observations {
		if !rec.Day.Equal(domain.DayOf(day)) {
			continue
		}
		name, tracked := m.identities[rec.Identifier]
		rows = append(rows, domain.ReportRow{
			Identifier:  rec.Identifier,
			DisplayName: name,
			Tracked:     tracked,
			Item:        m.metadata[rec.ItemKey],
			Day:         rec.Day,
		})
	}
	return rows, nil
}

func (m *memStore) DeleteObservationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for rec := range m.observations {
		if rec.Day.Before(domain.DayOf(cutoff)) {
			delete(m.observations, rec)
			n++
		}
	}
	return n, nil
}

func (m *memStore) observationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observations)
}

func (m *memStore) hasObservation(identifier, itemKey string, day time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.observations[domain.ObservationRecord{Identifier: identifier, ItemKey: itemKey, Day: domain.DayOf(day)}]
	return ok
}

// fakeSource serves canned activity and metadata, counting upstream calls.
type fakeSource struct {
	mu            sync.Mutex
	activity      map[string][]domain.Activity
	activityErr   map[string]error
	metadata      map[string]domain.MetadataEntry
	metadataErr   map[string]error
	block         map[string]bool
	activityCalls int
	metadataCalls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		activity:    map[string][]domain.Activity{},
		activityErr: map[string]error{},
		metadata:    map[string]domain.MetadataEntry{},
		metadataErr: map[string]error{},
		block:       map[string]bool{},
	}
}

func (f *fakeSource) FetchRecentActivity(ctx context.Context, identifier string) ([]domain.Activity, error) {
	f.mu.Lock()
	f.activityCalls++
	block := f.block[identifier]
	activity, err := f.activity[identifier], f.activityErr[identifier]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return activity, err
}

func (f *fakeSource) FetchItemMetadata(_ context.Context, itemKey string) (domain.MetadataEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls++
	if err := f.metadataErr[itemKey]; err != nil {
		return domain.MetadataEntry{}, err
	}
	return f.metadata[itemKey], nil
}

// fakeNotifier records deliveries.
type fakeNotifier struct {
	mu    sync.Mutex
	sent  []string
	dests []domain.Destination
	err   error
}

func (f *fakeNotifier) Send(_ context.Context, dest domain.Destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.dests = append(f.dests, dest)
	return f.err
}

// directRunner runs jobs inline and remembers their names.
type directRunner struct {
	names []string
}

func (r *directRunner) Do(ctx context.Context, name string, job ports.JobFunc) error {
	r.names = append(r.names, name)
	return job(ctx)
}
