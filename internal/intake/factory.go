package intake

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/lifecycle"
)

// Draft is the classified or manual input a ticket is assembled from.
type Draft struct {
	Title            string
	Description      string
	StudioID         string
	CategoryID       string
	SubcategoryID    *string
	Priority         domain.TicketPriority
	Source           domain.TicketSource
	AutoProcess      bool
	AssignToUserID   *string
	ReportedByUserID *string
	CustomerName     *string
	CustomerEmail    *string
	CustomerPhone    *string
	Origin           domain.Origin
	// SLAWindow overrides the factory default when positive.
	SLAWindow time.Duration
}

// Factory assembles canonical tickets.
type Factory struct {
	now        func() time.Time
	suffix     func() int
	defaultSLA time.Duration
}

// FactoryOption customises a Factory.
type FactoryOption func(*Factory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// WithSuffixSource replaces the random ticket-number suffix generator.
func WithSuffixSource(suffix func() int) FactoryOption {
	return func(f *Factory) { f.suffix = suffix }
}

// NewFactory builds a factory whose tickets default to defaultSLA.
func NewFactory(defaultSLA time.Duration, opts ...FactoryOption) *Factory {
	if defaultSLA <= 0 {
		defaultSLA = 24 * time.Hour
	}
	f := &Factory{
		now:        time.Now,
		suffix:     func() int { return rand.Intn(10000) },
		defaultSLA: defaultSLA,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now exposes the factory clock so collaborators stamp consistent times. It
// is truncated to the microsecond precision Postgres stores, so a timestamp
// read back compares equal to the one written.
func (f *Factory) Now() time.Time {
	return f.now().UTC().Truncate(time.Microsecond)
}

// DefaultSLA returns the window used when a draft has none.
func (f *Factory) DefaultSLA() time.Duration {
	return f.defaultSLA
}

// TicketNumber returns a human-readable TKT-YYMMDD-NNNN number for at. The
// suffix is random, so callers must check it against storage.
func (f *Factory) TicketNumber(at time.Time) string {
	n := f.suffix() % 10000
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("TKT-%s-%04d", at.UTC().Format("060102"), n)
}

// Build assembles a ticket from d. Auto-processed drafts start assigned.
func (f *Factory) Build(d Draft) *domain.Ticket {
	now := f.Now()

	window := d.SLAWindow
	if window <= 0 {
		window = f.defaultSLA
	}
	due := lifecycle.DueAt(now, window)

	priority := d.Priority
	if !priority.Valid() {
		priority = domain.TicketPriorityMedium
	}
	source := d.Source
	if !source.Valid() {
		source = domain.TicketSourceOther
	}

	ticket := &domain.Ticket{
		TicketNumber:     f.TicketNumber(now),
		StudioID:         d.StudioID,
		CategoryID:       d.CategoryID,
		SubcategoryID:    d.SubcategoryID,
		Priority:         priority,
		Source:           source,
		ReportedByUserID: d.ReportedByUserID,
		Status:           domain.TicketStatusNew,
		Title:            strings.TrimSpace(d.Title),
		Description:      strings.TrimSpace(d.Description),
		CustomerName:     blankToNil(d.CustomerName),
		CustomerEmail:    blankToNil(d.CustomerEmail),
		CustomerPhone:    blankToNil(d.CustomerPhone),
		Origin:           d.Origin,
		SLADueAt:         &due,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ticket.Origin.Kind == "" {
		ticket.Origin = domain.NewManualOrigin(nil)
	}
	if d.AutoProcess {
		ticket.Status = domain.TicketStatusAssigned
		ticket.AssignedToUserID = blankToNil(d.AssignToUserID)
	}
	return ticket
}

func blankToNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
