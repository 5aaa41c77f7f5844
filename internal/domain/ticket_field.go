package domain

import "time"

// TicketField names an auditable ticket attribute, using the wire names.
type TicketField string

const (
	FieldStudioID          TicketField = "studioId"
	FieldCategoryID        TicketField = "categoryId"
	FieldSubcategoryID     TicketField = "subcategoryId"
	FieldPriority          TicketField = "priority"
	FieldSource            TicketField = "source"
	FieldAssignedToUserID  TicketField = "assignedToUserId"
	FieldReportedByUserID  TicketField = "reportedByUserId"
	FieldStatus            TicketField = "status"
	FieldTitle             TicketField = "title"
	FieldDescription       TicketField = "description"
	FieldCustomerName      TicketField = "customerName"
	FieldCustomerEmail     TicketField = "customerEmail"
	FieldCustomerPhone     TicketField = "customerPhone"
	FieldDynamicFieldData  TicketField = "dynamicFieldData"
	FieldSLADueAt          TicketField = "slaDueAt"
	FieldFirstResponseAt   TicketField = "firstResponseAt"
	FieldResolvedAt        TicketField = "resolvedAt"
	FieldClosedAt          TicketField = "closedAt"
	FieldReopenedAt        TicketField = "reopenedAt"
	FieldResolutionSummary TicketField = "resolutionSummary"
)

// StringValue renders field f of t using the audit trail's coercion rule:
// strings verbatim, times as RFC 3339 UTC with nanoseconds, the origin bag
// as canonical JSON. A nil result means the field is unset.
func (t *Ticket) StringValue(f TicketField) *string {
	switch f {
	case FieldStudioID:
		return nonEmpty(t.StudioID)
	case FieldCategoryID:
		return nonEmpty(t.CategoryID)
	case FieldSubcategoryID:
		return cloneString(t.SubcategoryID)
	case FieldPriority:
		return nonEmpty(string(t.Priority))
	case FieldSource:
		return nonEmpty(string(t.Source))
	case FieldAssignedToUserID:
		return cloneString(t.AssignedToUserID)
	case FieldReportedByUserID:
		return cloneString(t.ReportedByUserID)
	case FieldStatus:
		return nonEmpty(string(t.Status))
	case FieldTitle:
		return strPtr(t.Title)
	case FieldDescription:
		return strPtr(t.Description)
	case FieldCustomerName:
		return cloneString(t.CustomerName)
	case FieldCustomerEmail:
		return cloneString(t.CustomerEmail)
	case FieldCustomerPhone:
		return cloneString(t.CustomerPhone)
	case FieldDynamicFieldData:
		return strPtr(t.Origin.String())
	case FieldSLADueAt:
		return formatTime(t.SLADueAt)
	case FieldFirstResponseAt:
		return formatTime(t.FirstResponseAt)
	case FieldResolvedAt:
		return formatTime(t.ResolvedAt)
	case FieldClosedAt:
		return formatTime(t.ClosedAt)
	case FieldReopenedAt:
		return formatTime(t.ReopenedAt)
	case FieldResolutionSummary:
		return cloneString(t.ResolutionSummary)
	}
	return nil
}

func formatTime(v *time.Time) *string {
	if v == nil {
		return nil
	}
	s := v.UTC().Format(time.RFC3339Nano)
	return &s
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func strPtr(v string) *string {
	return &v
}
