package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/events"
	"github.com/studiodesk/support-tickets/internal/repository"
)

func TestUpdateWritesOneHistoryRowPerChangedField(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(nil)

	patch := domain.TicketPatch{
		Title:       domain.Some("Locker door broken"),
		Priority:    domain.Some(domain.TicketPriorityHigh),
		Description: domain.Some("door hinge"),
	}
	updated, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Locker door broken" || updated.Priority != domain.TicketPriorityHigh {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(testNow) {
		t.Fatalf("updatedAt not bumped: %v", updated.UpdatedAt)
	}

	rows := h.tickets.historyFor(seeded.ID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 history rows, got %d: %+v", len(rows), rows)
	}
	want := map[domain.TicketField][2]string{
		domain.FieldPriority: {"medium", "high"},
		domain.FieldTitle:    {"Locker broken", "Locker door broken"},
	}
	for _, row := range rows {
		if row.Action != domain.HistoryActionUpdated || row.ChangedByUserID == nil || *row.ChangedByUserID != "user-1" {
			t.Fatalf("unexpected row %+v", row)
		}
		pair, ok := want[*row.FieldChanged]
		if !ok {
			t.Fatalf("unexpected field %s", *row.FieldChanged)
		}
		if *row.OldValue != pair[0] || *row.NewValue != pair[1] {
			t.Fatalf("field %s: got %q -> %q", *row.FieldChanged, *row.OldValue, *row.NewValue)
		}
	}
}

func TestUpdateClearingFieldIsAudited(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(func(tk *domain.Ticket) { tk.CustomerPhone = strPtr("555-0100") })

	_, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, domain.TicketPatch{
		CustomerPhone: domain.Null[string](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	rows := h.tickets.historyFor(seeded.ID)
	if len(rows) != 1 || *rows[0].FieldChanged != domain.FieldCustomerPhone {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].OldValue == nil || *rows[0].OldValue != "555-0100" || rows[0].NewValue != nil {
		t.Fatalf("unexpected values %+v", rows[0])
	}
}

func TestUpdateStatusStampsAndAuditsTimestamps(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(nil)

	updated, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, domain.TicketPatch{
		Status: domain.Some(domain.TicketStatusResolved),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ResolvedAt == nil || !updated.ResolvedAt.Equal(testNow) {
		t.Fatalf("resolvedAt not stamped: %v", updated.ResolvedAt)
	}
	fields := map[domain.TicketField]bool{}
	for _, row := range h.tickets.historyFor(seeded.ID) {
		fields[*row.FieldChanged] = true
	}
	for _, f := range []domain.TicketField{domain.FieldStatus, domain.FieldResolvedAt, domain.FieldFirstResponseAt} {
		if !fields[f] {
			t.Fatalf("expected history for %s, got %v", f, fields)
		}
	}
	got := h.recorded.types()
	want := []events.EventType{events.EventTicketUpdated, events.EventTicketStatusChanged}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(nil)

	cases := []struct {
		name   string
		patch  domain.TicketPatch
		status int
	}{
		{"empty", domain.TicketPatch{}, http.StatusBadRequest},
		{"unknown status", domain.TicketPatch{Status: domain.Some(domain.TicketStatus("escalated"))}, http.StatusBadRequest},
		{"blank title", domain.TicketPatch{Title: domain.Some("  ")}, http.StatusBadRequest},
		{"illegal transition", domain.TicketPatch{Status: domain.Some(domain.TicketStatusReopened)}, http.StatusConflict},
		{"unknown studio", domain.TicketPatch{StudioID: domain.Some("studio-gone")}, http.StatusBadRequest},
		{"unknown category", domain.TicketPatch{CategoryID: domain.Some("cat-gone")}, http.StatusBadRequest},
		{"unknown subcategory", domain.TicketPatch{SubcategoryID: domain.Some("sub-gone")}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, tc.patch)
			assertStatus(t, err, tc.status)
		})
	}
	if rows := h.tickets.historyFor(seeded.ID); len(rows) != 0 {
		t.Fatalf("rejected updates wrote history: %+v", rows)
	}
}

func TestUpdateMissingTicket(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	_, err := h.ticketSvc.Update(context.Background(), "user-1", "nope", domain.TicketPatch{Title: domain.Some("x")})
	assertStatus(t, err, http.StatusNotFound)
}

func TestMalformedTicketIDIsNotFound(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	h.seedTicket(func(tk *domain.Ticket) { tk.AssignedToUserID = strPtr("owner") })
	ctx := context.Background()

	calls := map[string]func() error{
		"get": func() error { _, err := h.ticketSvc.Get(ctx, "abc"); return err },
		"history": func() error { _, err := h.ticketSvc.ListHistory(ctx, "abc", 10, 0); return err },
		"update": func() error {
			_, err := h.ticketSvc.Update(ctx, "owner", "abc", domain.TicketPatch{Title: domain.Some("x")})
			return err
		},
		"status owner": func() error { _, err := h.ticketSvc.UpdateStatusAsOwner(ctx, "owner", "abc", "resolved"); return err },
		"close owner":  func() error { _, err := h.ticketSvc.CloseAsOwner(ctx, "owner", "abc", "done"); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assertStatus(t, call(), http.StatusNotFound)
		})
	}
	if h.tickets.lookups != 0 {
		t.Fatalf("malformed ids reached the store %d times", h.tickets.lookups)
	}
}

func TestUpdateWithKnownReferences(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(nil)

	updated, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, domain.TicketPatch{
		StudioID:      domain.Some("studio-new"),
		CategoryID:    domain.Some("cat-equipment"),
		SubcategoryID: domain.Some("sub-springs"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.StudioID != "studio-new" || updated.CategoryID != "cat-equipment" || *updated.SubcategoryID != "sub-springs" {
		t.Fatalf("references not applied: %+v", updated)
	}
}

func TestCreateManualUnknownStudio(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	_, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{
		Title:    "x",
		StudioID: strPtr("studio-gone"),
	})
	assertStatus(t, err, http.StatusBadRequest)
	if h.tickets.creates != 0 {
		t.Fatalf("ticket inserted for unknown studio")
	}
}

func TestUpdateStaleWriteIsConflict(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(nil)
	h.tickets.updateErr = repository.ErrStaleTicket

	_, err := h.ticketSvc.Update(context.Background(), "user-1", seeded.ID, domain.TicketPatch{Title: domain.Some("x")})
	assertStatus(t, err, http.StatusConflict)
}

func TestOwnerPathsRejectNonOwners(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	owned := h.seedTicket(func(tk *domain.Ticket) { tk.AssignedToUserID = strPtr("owner") })
	unassigned := h.seedTicket(func(tk *domain.Ticket) { tk.ID = unassignedTicketID })

	for _, id := range []string{owned.ID, unassigned.ID} {
		before, _ := h.tickets.GetByID(context.Background(), id)

		_, err := h.ticketSvc.UpdateStatusAsOwner(context.Background(), "intruder", id, "in_progress")
		assertStatus(t, err, http.StatusForbidden)
		_, err = h.ticketSvc.CloseAsOwner(context.Background(), "intruder", id, "done")
		assertStatus(t, err, http.StatusForbidden)

		after, _ := h.tickets.GetByID(context.Background(), id)
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("ticket %s changed:\nbefore %+v\nafter  %+v", id, before, after)
		}
		if rows := h.tickets.historyFor(id); len(rows) != 0 {
			t.Fatalf("forbidden request wrote history: %+v", rows)
		}
	}
}

func TestUpdateStatusAsOwner(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(func(tk *domain.Ticket) { tk.AssignedToUserID = strPtr("owner") })

	updated, err := h.ticketSvc.UpdateStatusAsOwner(context.Background(), "owner", seeded.ID, "in_progress")
	if err != nil {
		t.Fatalf("status update: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress || updated.FirstResponseAt == nil {
		t.Fatalf("unexpected ticket %+v", updated)
	}
	rows := h.tickets.historyFor(seeded.ID)
	if len(rows) != 2 {
		t.Fatalf("expected status and firstResponseAt rows, got %+v", rows)
	}
}

func TestUpdateStatusAsOwnerValidatesStatus(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(func(tk *domain.Ticket) { tk.AssignedToUserID = strPtr("owner") })

	_, err := h.ticketSvc.UpdateStatusAsOwner(context.Background(), "owner", seeded.ID, "")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = h.ticketSvc.UpdateStatusAsOwner(context.Background(), "owner", seeded.ID, "done-ish")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = h.ticketSvc.UpdateStatusAsOwner(context.Background(), "owner", "missing", "resolved")
	assertStatus(t, err, http.StatusNotFound)
}

func TestCloseAsOwnerRequiresSummary(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	seeded := h.seedTicket(func(tk *domain.Ticket) { tk.AssignedToUserID = strPtr("owner") })

	for _, summary := range []string{"", "   "} {
		_, err := h.ticketSvc.CloseAsOwner(context.Background(), "owner", seeded.ID, summary)
		assertStatus(t, err, http.StatusBadRequest)
	}
	if rows := h.tickets.historyFor(seeded.ID); len(rows) != 0 {
		t.Fatalf("expected no history, got %+v", rows)
	}
}

func TestCloseAsOwner(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	earlier := testNow.Add(-30 * time.Minute)
	seeded := h.seedTicket(func(tk *domain.Ticket) {
		tk.AssignedToUserID = strPtr("owner")
		tk.Status = domain.TicketStatusResolved
		tk.ResolvedAt = &earlier
	})

	closed, err := h.ticketSvc.CloseAsOwner(context.Background(), "owner", seeded.ID, " replaced the spring ")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %s", closed.Status)
	}
	if !closed.ResolvedAt.Equal(testNow) || !closed.ClosedAt.Equal(testNow) {
		t.Fatalf("resolvedAt/closedAt not set to now: %v %v", closed.ResolvedAt, closed.ClosedAt)
	}
	if closed.ResolutionSummary == nil || *closed.ResolutionSummary != "replaced the spring" {
		t.Fatalf("summary = %v", closed.ResolutionSummary)
	}

	fields := map[domain.TicketField]bool{}
	for _, row := range h.tickets.historyFor(seeded.ID) {
		fields[*row.FieldChanged] = true
	}
	for _, f := range []domain.TicketField{domain.FieldStatus, domain.FieldResolvedAt, domain.FieldClosedAt, domain.FieldResolutionSummary} {
		if !fields[f] {
			t.Fatalf("missing history for %s: %v", f, fields)
		}
	}

}

func TestCloseAsOwnerRestampsClosedTicket(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	earlier := testNow.Add(-30 * time.Minute)
	seeded := h.seedTicket(func(tk *domain.Ticket) {
		tk.AssignedToUserID = strPtr("owner")
		tk.Status = domain.TicketStatusClosed
		tk.ResolvedAt = &earlier
		tk.ClosedAt = &earlier
		tk.ResolutionSummary = strPtr("first pass")
	})

	closed, err := h.ticketSvc.CloseAsOwner(context.Background(), "owner", seeded.ID, "second pass")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !closed.ResolvedAt.Equal(testNow) || !closed.ClosedAt.Equal(testNow) {
		t.Fatalf("timestamps not re-stamped: %v %v", closed.ResolvedAt, closed.ClosedAt)
	}
	if *closed.ResolutionSummary != "second pass" {
		t.Fatalf("summary = %s", *closed.ResolutionSummary)
	}
	for _, row := range h.tickets.historyFor(seeded.ID) {
		if *row.FieldChanged == domain.FieldStatus {
			t.Fatalf("unchanged status must not be audited: %+v", row)
		}
	}
}

func TestCreateManualUsesFallbackAndCategorySLA(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())

	ticket, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{
		Title:         "Spring squeaks",
		CategoryID:    strPtr("cat-equipment"),
		SubcategoryID: strPtr("sub-springs"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.StudioID != "studio-old" {
		t.Fatalf("expected oldest studio, got %s", ticket.StudioID)
	}
	if ticket.Source != domain.TicketSourceWebsite || ticket.Status != domain.TicketStatusNew {
		t.Fatalf("unexpected defaults %+v", ticket)
	}
	if want := testNow.Add(4 * time.Hour); !ticket.SLADueAt.Equal(want) {
		t.Fatalf("slaDueAt = %v, want %v", ticket.SLADueAt, want)
	}
	if ticket.ReportedByUserID == nil || *ticket.ReportedByUserID != "agent-1" {
		t.Fatalf("reporter not recorded")
	}

	rows := h.tickets.historyFor(ticket.ID)
	if len(rows) != 1 || rows[0].Action != domain.HistoryActionCreated || *rows[0].NewValue != domain.TicketCreatedMarker {
		t.Fatalf("unexpected creation history %+v", rows)
	}
}

func TestCreateManualUnknownCategory(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	_, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{
		Title:      "x",
		CategoryID: strPtr("cat-missing"),
	})
	assertStatus(t, err, http.StatusBadRequest)
}

func TestCreateRegeneratesCollidingTicketNumbers(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	h.tickets.takenNums["TKT-240315-0001"] = true
	h.tickets.createErrs = []error{repository.ErrTicketNumberTaken}

	ticket, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.TicketNumber != "TKT-240315-0003" {
		t.Fatalf("ticket number = %s", ticket.TicketNumber)
	}
	if h.tickets.creates != 2 {
		t.Fatalf("expected 2 insert attempts, got %d", h.tickets.creates)
	}
}

func TestCreateGivesUpAfterConfiguredAttempts(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	h.tickets.createErrs = []error{
		repository.ErrTicketNumberTaken, repository.ErrTicketNumberTaken, repository.ErrTicketNumberTaken,
		repository.ErrTicketNumberTaken, repository.ErrTicketNumberTaken,
	}
	_, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{Title: "x"})
	assertStatus(t, err, http.StatusConflict)
}

func TestCreatePropagatesStoreErrors(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	boom := errors.New("connection refused")
	h.tickets.createErrs = []error{boom}
	_, err := h.ticketSvc.CreateManual(context.Background(), "agent-1", ManualTicketInput{Title: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if h.tickets.creates != 1 {
		t.Fatalf("store errors must not be retried")
	}
}

func TestGetReevaluatesSLA(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	due := testNow.Add(-time.Minute)
	seeded := h.seedTicket(func(tk *domain.Ticket) { tk.SLADueAt = &due })

	ticket, err := h.ticketSvc.Get(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ticket.SLABreached {
		t.Fatalf("expected breach at read time")
	}

	list, err := h.ticketSvc.List(context.Background(), TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || !list[0].SLABreached {
		t.Fatalf("list not re-evaluated: %+v", list)
	}
}

func TestListHistoryMissingTicket(t *testing.T) {
	h := newHarness(t, domain.DefaultIntegrationSettings())
	_, err := h.ticketSvc.ListHistory(context.Background(), "missing", 10, 0)
	assertStatus(t, err, http.StatusNotFound)
}
