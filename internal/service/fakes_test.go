package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/repository"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

const (
	seededTicketID     = "5a3c1f0e-2b7d-4c1e-9f3a-8d6b2e4c7a10"
	unassignedTicketID = "9e2b6a4d-1c3f-4e5a-8b7c-0d1e2f3a4b5c"
)

type fakeTickets struct {
	mu         sync.Mutex
	rows       map[string]*domain.Ticket
	history    []domain.TicketHistory
	takenNums  map[string]bool
	createErrs []error
	updateErr  error
	lookups    int
	creates    int
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{rows: map[string]*domain.Ticket{}, takenNums: map[string]bool{}}
}

func (f *fakeTickets) Create(_ context.Context, ticket *domain.Ticket, history []domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	ticket.ID = uuid.NewString()
	f.rows[ticket.ID] = ticket.Clone()
	f.takenNums[ticket.TicketNumber] = true
	f.appendHistory(ticket.ID, history)
	return nil
}

func (f *fakeTickets) Update(_ context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, history []domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.rows[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return repository.ErrStaleTicket
	}
	f.rows[ticket.ID] = ticket.Clone()
	f.appendHistory(ticket.ID, history)
	return nil
}

func (f *fakeTickets) appendHistory(ticketID string, history []domain.TicketHistory) {
	for i := range history {
		history[i].TicketID = ticketID
		history[i].ID = fmt.Sprintf("history-%d", len(f.history)+1)
		f.history = append(f.history, history[i])
	}
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	ticket, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.Clone(), nil
}

func (f *fakeTickets) NumberExists(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.takenNums[number], nil
}

func (f *fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.rows {
		if filter.StudioID != nil && ticket.StudioID != *filter.StudioID {
			continue
		}
		result = append(result, *ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTickets) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range f.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (f *fakeTickets) historyFor(ticketID string) []domain.TicketHistory {
	rows, _ := f.ListByTicket(context.Background(), ticketID, 0, 0)
	return rows
}

// put stores a ticket directly, bypassing the service.
func (f *fakeTickets) put(ticket *domain.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[ticket.ID] = ticket.Clone()
}

type fakeStudios struct {
	studios []domain.Studio
}

func (f *fakeStudios) GetByID(_ context.Context, id string) (*domain.Studio, error) {
	for _, studio := range f.studios {
		if studio.ID == id {
			return &studio, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStudios) ListActive(context.Context) ([]domain.Studio, error) {
	var active []domain.Studio
	for _, studio := range f.studios {
		if studio.IsActive {
			active = append(active, studio)
		}
	}
	return active, nil
}

type fakeCategories struct {
	categories map[string]domain.Category
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	category, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (f *fakeCategories) ListActiveRoots(context.Context) ([]domain.Category, error) {
	var roots []domain.Category
	for _, category := range f.categories {
		if category.IsActive && category.ParentID == nil {
			roots = append(roots, category)
		}
	}
	return roots, nil
}

type fakeSettings struct {
	mu      sync.Mutex
	raw     []byte
	version int64
	saveErr error
}

func newFakeSettings(doc domain.IntegrationSettings) *fakeSettings {
	raw, _ := json.Marshal(doc)
	return &fakeSettings{raw: raw}
}

func (f *fakeSettings) Load(context.Context) (*domain.IntegrationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	settings := domain.DefaultIntegrationSettings()
	if err := repository.MergeSettingsDocument(&settings, f.raw); err != nil {
		return nil, err
	}
	settings.Version = f.version
	return &settings, nil
}

func (f *fakeSettings) Save(_ context.Context, settings *domain.IntegrationSettings, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.version != expectedVersion {
		return repository.ErrStaleSettings
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	f.raw = raw
	f.version++
	settings.Version = f.version
	return nil
}

type fakeDeliveries struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeDeliveries() *fakeDeliveries {
	return &fakeDeliveries{keys: map[string]string{}}
}

func (f *fakeDeliveries) Reserve(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if val, ok := f.keys[key]; ok {
		return false, val, nil
	}
	f.keys[key] = ""
	return true, "", nil
}

func (f *fakeDeliveries) Complete(_ context.Context, key, ticketID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = ticketID
	return nil
}

func (f *fakeDeliveries) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, event := range r.events {
		out = append(out, event.Type)
	}
	return out
}

type harness struct {
	tickets    *fakeTickets
	studios    *fakeStudios
	categories *fakeCategories
	settings   *fakeSettings
	deliveries *fakeDeliveries
	recorded   *recordedEvents
	factory    *intake.Factory
	ticketSvc  *TicketService
	intakeSvc  *IntakeService
	settingSvc *SettingsService
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func newHarness(t *testing.T, doc domain.IntegrationSettings) *harness {
	t.Helper()
	suffix := 0
	factory := intake.NewFactory(24*time.Hour,
		intake.WithClock(func() time.Time { return testNow }),
		intake.WithSuffixSource(func() int { suffix++; return suffix }),
	)
	h := &harness{
		tickets: newFakeTickets(),
		studios: &fakeStudios{studios: []domain.Studio{
			{ID: "studio-new", IsActive: true, CreatedAt: testNow.Add(-time.Hour)},
			{ID: "studio-old", IsActive: true, CreatedAt: testNow.Add(-48 * time.Hour)},
		}},
		categories: &fakeCategories{categories: map[string]domain.Category{
			"cat-general":   {ID: "cat-general", IsActive: true, CreatedAt: testNow.Add(-72 * time.Hour)},
			"cat-equipment": {ID: "cat-equipment", IsActive: true, SLAHours: intPtr(8), CreatedAt: testNow.Add(-24 * time.Hour)},
			"sub-springs":   {ID: "sub-springs", ParentID: strPtr("cat-equipment"), IsActive: true, SLAHours: intPtr(4), CreatedAt: testNow},
		}},
		settings:   newFakeSettings(doc),
		deliveries: newFakeDeliveries(),
		recorded:   &recordedEvents{},
		factory:    factory,
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			h.recorded.mu.Lock()
			defer h.recorded.mu.Unlock()
			h.recorded.events = append(h.recorded.events, event)
			return nil
		})
	}

	fallback := intake.NewFallbackResolver(h.studios, h.categories)
	h.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:   h.tickets,
		HistoryRepo:  h.tickets,
		CategoryRepo: h.categories,
		Fallback:     fallback,
		Factory:      factory,
		Dispatcher:   dispatcher,
	})
	h.intakeSvc = NewIntakeService(IntakeDependencies{
		SettingsRepo: h.settings,
		DeliveryRepo: h.deliveries,
		Fallback:     fallback,
		Tickets:      h.ticketSvc,
	})
	h.settingSvc = NewSettingsService(h.settings, dispatcher, factory, fallback, nil)
	return h
}

// seedTicket stores an existing ticket last updated an hour before testNow.
func (h *harness) seedTicket(mutate func(*domain.Ticket)) *domain.Ticket {
	created := testNow.Add(-2 * time.Hour)
	due := created.Add(24 * time.Hour)
	ticket := &domain.Ticket{
		ID:           seededTicketID,
		TicketNumber: "TKT-240315-9999",
		StudioID:     "studio-old",
		CategoryID:   "cat-general",
		Priority:     domain.TicketPriorityMedium,
		Source:       domain.TicketSourcePhone,
		Status:       domain.TicketStatusAssigned,
		Title:        "Locker broken",
		Description:  "door hinge",
		Origin:       domain.NewManualOrigin(nil),
		SLADueAt:     &due,
		CreatedAt:    created,
		UpdatedAt:    testNow.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(ticket)
	}
	h.tickets.put(ticket)
	return ticket
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", status)
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus != status {
		t.Fatalf("expected status %d, got %d (%v)", status, domainErr.HTTPStatus, err)
	}
}
