package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/intake"
	"github.com/studiodesk/support-tickets/internal/lifecycle"
	"github.com/studiodesk/support-tickets/internal/repository"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

const defaultTicketNumberAttempts = 5

// TicketService coordinates ticket workflows. Every mutation goes through
// applyAndAudit so each changed field leaves a history row.
type TicketService struct {
	tickets        repository.TicketRepository
	history        repository.TicketHistoryRepository
	categories     repository.CategoryRepository
	fallback       *intake.FallbackResolver
	factory        *intake.Factory
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	numberAttempts int
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo           repository.TicketRepository
	HistoryRepo          repository.TicketHistoryRepository
	CategoryRepo         repository.CategoryRepository
	Fallback             *intake.FallbackResolver
	Factory              *intake.Factory
	Dispatcher           events.Dispatcher
	Logger               *zap.Logger
	TicketNumberAttempts int
}

// ManualTicketInput describes a ticket filed by staff.
type ManualTicketInput struct {
	Title            string
	Description      string
	StudioID         *string
	CategoryID       *string
	SubcategoryID    *string
	Priority         domain.TicketPriority
	Source           domain.TicketSource
	AssignedToUserID *string
	CustomerName     *string
	CustomerEmail    *string
	CustomerPhone    *string
	Fields           map[string]any
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	StudioID   *string
	AssigneeID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := deps.TicketNumberAttempts
	if attempts <= 0 {
		attempts = defaultTicketNumberAttempts
	}
	return &TicketService{
		tickets:        deps.TicketRepo,
		history:        deps.HistoryRepo,
		categories:     deps.CategoryRepo,
		fallback:       deps.Fallback,
		factory:        deps.Factory,
		dispatcher:     deps.Dispatcher,
		logger:         logger,
		numberAttempts: attempts,
	}
}

// CreateManual files a ticket on behalf of a staff member.
func (s *TicketService) CreateManual(ctx context.Context, actorID string, input ManualTicketInput) (*domain.Ticket, error) {
	problems := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		problems["title"] = "required"
	}
	if input.Priority != "" && !input.Priority.Valid() {
		problems["priority"] = "must be one of low, medium, high, critical"
	}
	if input.Source != "" && !input.Source.Valid() {
		problems["source"] = "unknown source"
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", problems)
	}
	if err := s.verifyReferences(ctx, input.StudioID, input.CategoryID, input.SubcategoryID); err != nil {
		return nil, err
	}

	placement, err := s.fallback.Resolve(ctx, input.StudioID, input.CategoryID)
	if err != nil {
		return nil, err
	}
	window, err := s.SLAWindow(ctx, &placement.CategoryID, input.SubcategoryID)
	if err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = domain.TicketSourceWebsite
	}
	reporter := actorID
	draft := intake.Draft{
		Title:            input.Title,
		Description:      input.Description,
		StudioID:         placement.StudioID,
		CategoryID:       placement.CategoryID,
		SubcategoryID:    input.SubcategoryID,
		Priority:         input.Priority,
		Source:           source,
		ReportedByUserID: &reporter,
		CustomerName:     input.CustomerName,
		CustomerEmail:    input.CustomerEmail,
		CustomerPhone:    input.CustomerPhone,
		Origin:           domain.NewManualOrigin(input.Fields),
		SLAWindow:        window,
	}
	if input.AssignedToUserID != nil && strings.TrimSpace(*input.AssignedToUserID) != "" {
		draft.AutoProcess = true
		draft.AssignToUserID = input.AssignedToUserID
	}
	return s.CreateFromDraft(ctx, draft, &reporter)
}

// CreateFromDraft assembles, numbers and persists a ticket together with its
// created history row. Ticket numbers are regenerated on collision.
func (s *TicketService) CreateFromDraft(ctx context.Context, draft intake.Draft, actorID *string) (*domain.Ticket, error) {
	if strings.TrimSpace(draft.StudioID) == "" || strings.TrimSpace(draft.CategoryID) == "" {
		return nil, apperrors.NewValidationError("studio and category are required", nil)
	}
	ticket := s.factory.Build(draft)

	for attempt := 1; attempt <= s.numberAttempts; attempt++ {
		if attempt > 1 {
			ticket.TicketNumber = s.factory.TicketNumber(ticket.CreatedAt)
		}
		taken, err := s.tickets.NumberExists(ctx, ticket.TicketNumber)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}
		history := []domain.TicketHistory{lifecycle.CreatedEntry(ticket, actorID, ticket.CreatedAt)}
		err = s.tickets.Create(ctx, ticket, history)
		if errors.Is(err, repository.ErrTicketNumberTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.logger.Info("ticket created",
			zap.String("ticket_id", ticket.ID),
			zap.String("ticket_number", ticket.TicketNumber),
			zap.String("origin", string(ticket.Origin.Kind)),
			zap.String("status", string(ticket.Status)))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: ticket.ID,
			ActorID:  actorID,
			Payload: events.TicketCreatedPayload{
				TicketNumber: ticket.TicketNumber,
				StudioID:     ticket.StudioID,
				CategoryID:   ticket.CategoryID,
				Priority:     ticket.Priority,
				Source:       ticket.Source,
				Status:       ticket.Status,
				Origin:       ticket.Origin.Kind,
				Title:        ticket.Title,
			},
		})
		return ticket, nil
	}
	return nil, apperrors.NewConflict("could not allocate a unique ticket number", map[string]any{
		"attempts": s.numberAttempts,
	})
}

// SLAWindow picks the SLA window for a classification: the subcategory's
// hours, then the category's, then the configured default.
func (s *TicketService) SLAWindow(ctx context.Context, categoryID, subcategoryID *string) (time.Duration, error) {
	for _, id := range []*string{subcategoryID, categoryID} {
		if id == nil || strings.TrimSpace(*id) == "" || s.categories == nil {
			continue
		}
		category, err := s.categories.GetByID(ctx, strings.TrimSpace(*id))
		if apperrors.IsMissingRow(err) {
			return 0, apperrors.NewValidationError("category not found", map[string]any{"category_id": *id})
		}
		if err != nil {
			return 0, err
		}
		if window, ok := category.SLAWindow(); ok {
			return window, nil
		}
	}
	return s.factory.DefaultSLA(), nil
}

// Get returns a ticket with its breach flag re-evaluated at read time.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	lifecycle.Refresh(ticket, s.factory.Now())
	return ticket, nil
}

// List returns tickets matching filter, each re-evaluated for SLA breach.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		StudioID:   filter.StudioID,
		AssigneeID: filter.AssigneeID,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	now := s.factory.Now()
	for i := range tickets {
		lifecycle.Refresh(&tickets[i], now)
	}
	return tickets, nil
}

// ListHistory returns the audit trail of a ticket, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.load(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

// Update applies a general partial update. Any authenticated caller may use it.
func (s *TicketService) Update(ctx context.Context, actorID, ticketID string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.IsEmpty() {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}
	if problems := patch.Problems(); len(problems) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket update", problems)
	}
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.verifyReferences(ctx, patch.StudioID.Value, patch.CategoryID.Value, patch.SubcategoryID.Value); err != nil {
		return nil, err
	}
	return s.applyAndAudit(ctx, actorID, current, func(t *domain.Ticket, now time.Time) ([]domain.TicketField, error) {
		patch.ApplyFields(t)
		fields := patch.Fields()
		if patch.Status.Set {
			stamped, err := lifecycle.Transition(t, *patch.Status.Value, now)
			if err != nil {
				return nil, err
			}
			fields = append(fields, stamped...)
		}
		return fields, nil
	})
}

// UpdateStatusAsOwner changes the status of a ticket assigned to the caller.
func (s *TicketService) UpdateStatusAsOwner(ctx context.Context, actorID, ticketID, rawStatus string) (*domain.Ticket, error) {
	rawStatus = strings.TrimSpace(rawStatus)
	if rawStatus == "" {
		return nil, apperrors.NewValidationError("status is required", map[string]any{"status": "required"})
	}
	next, err := lifecycle.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(current, actorID); err != nil {
		return nil, err
	}
	return s.applyAndAudit(ctx, actorID, current, func(t *domain.Ticket, now time.Time) ([]domain.TicketField, error) {
		stamped, err := lifecycle.Transition(t, next, now)
		if err != nil {
			return nil, err
		}
		return append([]domain.TicketField{domain.FieldStatus}, stamped...), nil
	})
}

// CloseAsOwner closes a ticket assigned to the caller and stores the summary.
func (s *TicketService) CloseAsOwner(ctx context.Context, actorID, ticketID, resolutionSummary string) (*domain.Ticket, error) {
	summary := strings.TrimSpace(resolutionSummary)
	if summary == "" {
		return nil, apperrors.NewValidationError("resolution summary is required", map[string]any{"resolutionSummary": "required"})
	}
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(current, actorID); err != nil {
		return nil, err
	}
	return s.applyAndAudit(ctx, actorID, current, func(t *domain.Ticket, now time.Time) ([]domain.TicketField, error) {
		stamped, err := lifecycle.Close(t, now)
		if err != nil {
			return nil, err
		}
		t.ResolutionSummary = &summary
		fields := append([]domain.TicketField{domain.FieldStatus}, stamped...)
		return append(fields, domain.FieldResolutionSummary), nil
	})
}

type mutation func(t *domain.Ticket, now time.Time) ([]domain.TicketField, error)

// applyAndAudit runs mutate on a copy of current, refreshes the SLA flag,
// diffs the touched fields and persists ticket and history together. The
// write is conditional on current.UpdatedAt so a concurrent edit is a conflict
// rather than a lost update.
func (s *TicketService) applyAndAudit(ctx context.Context, actorID string, current *domain.Ticket, mutate mutation) (*domain.Ticket, error) {
	before := current.Clone()
	next := current.Clone()
	now := s.factory.Now()

	fields, err := mutate(next, now)
	if err != nil {
		return nil, err
	}
	lifecycle.Refresh(next, now)
	next.UpdatedAt = now

	actor := actorRef(actorID)
	entries := lifecycle.Diff(before, next, fields, actor, now)

	if err := s.tickets.Update(ctx, next, before.UpdatedAt, entries); err != nil {
		if errors.Is(err, repository.ErrStaleTicket) {
			return nil, apperrors.NewConflict("ticket was modified by another request", map[string]any{"ticket_id": next.ID})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": next.ID})
		}
		return nil, err
	}

	s.publishChanges(ctx, actor, before, next, entries)
	return next, nil
}

func (s *TicketService) publishChanges(ctx context.Context, actor *string, before, after *domain.Ticket, entries []domain.TicketHistory) {
	if len(entries) == 0 {
		return
	}
	changed := make([]domain.TicketField, 0, len(entries))
	for _, entry := range entries {
		if entry.FieldChanged != nil {
			changed = append(changed, *entry.FieldChanged)
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: after.ID,
		ActorID:  actor,
		Payload:  events.TicketUpdatedPayload{Fields: changed},
	})
	if before.Status == after.Status {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: after.ID,
		ActorID:  actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
		},
	})
	if after.Status == domain.TicketStatusClosed {
		summary := ""
		if after.ResolutionSummary != nil {
			summary = *after.ResolutionSummary
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketClosed,
			TicketID: after.ID,
			ActorID:  actor,
			Payload: events.TicketClosedPayload{
				ResolutionSummary: summary,
				SLABreached:       lifecycle.Evaluate(before, after.UpdatedAt),
			},
		})
	}
}

// load fetches a ticket by id. Ids that are not UUIDs cannot name a ticket
// and are reported as not found without a query.
func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	notFound := apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, notFound
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsMissingRow(err) {
			return nil, notFound
		}
		return nil, err
	}
	return ticket, nil
}

// verifyReferences rejects studio, category and subcategory ids that name no
// stored row. Nil or blank ids are skipped.
func (s *TicketService) verifyReferences(ctx context.Context, studioID, categoryID, subcategoryID *string) error {
	problems, err := s.fallback.Verify(ctx, studioID, categoryID)
	if err != nil {
		return err
	}
	if subcategoryID != nil && strings.TrimSpace(*subcategoryID) != "" && s.categories != nil {
		if _, err := s.categories.GetByID(ctx, strings.TrimSpace(*subcategoryID)); apperrors.IsMissingRow(err) {
			problems["subcategoryId"] = "unknown category"
		} else if err != nil {
			return err
		}
	}
	if len(problems) > 0 {
		return apperrors.NewValidationError("unknown reference", problems)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, s.factory.Now(), event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// requireOwner rejects callers other than the assignee, including when the
// ticket has no assignee at all.
func requireOwner(ticket *domain.Ticket, actorID string) error {
	if !ticket.IsOwnedBy(actorID) {
		return apperrors.NewForbidden("only the assigned owner may change this ticket")
	}
	return nil
}

func actorRef(actorID string) *string {
	if strings.TrimSpace(actorID) == "" {
		return nil
	}
	return &actorID
}
