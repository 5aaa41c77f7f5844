package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Optional tracks whether a JSON key was present at all, so that an explicit
// null (clear the field) can be told apart from an omitted key (leave it).
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a present, non-null optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a present optional that clears the field.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON marks the value present; encoding/json only calls it for keys
// that appear in the document, null included.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON renders the value or null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// TicketPatch is a partial ticket: only keys that are Set take part in an
// update and in its audit diff.
type TicketPatch struct {
	StudioID         Optional[string]         `json:"studioId"`
	CategoryID       Optional[string]         `json:"categoryId"`
	SubcategoryID    Optional[string]         `json:"subcategoryId"`
	Priority         Optional[TicketPriority] `json:"priority"`
	Source           Optional[TicketSource]   `json:"source"`
	AssignedToUserID Optional[string]         `json:"assignedToUserId"`
	Status           Optional[TicketStatus]   `json:"status"`
	Title            Optional[string]         `json:"title"`
	Description      Optional[string]         `json:"description"`
	CustomerName     Optional[string]         `json:"customerName"`
	CustomerEmail    Optional[string]         `json:"customerEmail"`
	CustomerPhone    Optional[string]         `json:"customerPhone"`
	SLADueAt         Optional[time.Time]      `json:"slaDueAt"`
	FirstResponseAt  Optional[time.Time]      `json:"firstResponseAt"`
}

// Fields lists the present keys in a stable order.
func (p TicketPatch) Fields() []TicketField {
	var fields []TicketField
	add := func(set bool, f TicketField) {
		if set {
			fields = append(fields, f)
		}
	}
	add(p.StudioID.Set, FieldStudioID)
	add(p.CategoryID.Set, FieldCategoryID)
	add(p.SubcategoryID.Set, FieldSubcategoryID)
	add(p.Priority.Set, FieldPriority)
	add(p.Source.Set, FieldSource)
	add(p.AssignedToUserID.Set, FieldAssignedToUserID)
	add(p.Status.Set, FieldStatus)
	add(p.Title.Set, FieldTitle)
	add(p.Description.Set, FieldDescription)
	add(p.CustomerName.Set, FieldCustomerName)
	add(p.CustomerEmail.Set, FieldCustomerEmail)
	add(p.CustomerPhone.Set, FieldCustomerPhone)
	add(p.SLADueAt.Set, FieldSLADueAt)
	add(p.FirstResponseAt.Set, FieldFirstResponseAt)
	return fields
}

// IsEmpty reports whether the patch carries no keys.
func (p TicketPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Problems returns a field → reason map for values that can never be applied.
func (p TicketPatch) Problems() map[string]any {
	problems := map[string]any{}
	required := func(o Optional[string], f TicketField) {
		if o.Set && (o.Value == nil || strings.TrimSpace(*o.Value) == "") {
			problems[string(f)] = "must not be empty"
		}
	}
	required(p.StudioID, FieldStudioID)
	required(p.CategoryID, FieldCategoryID)
	required(p.Title, FieldTitle)
	if p.Priority.Set && (p.Priority.Value == nil || !p.Priority.Value.Valid()) {
		problems[string(FieldPriority)] = "must be one of low, medium, high, critical"
	}
	if p.Source.Set && (p.Source.Value == nil || !p.Source.Value.Valid()) {
		problems[string(FieldSource)] = "unknown source"
	}
	if p.Status.Set && (p.Status.Value == nil || !p.Status.Value.Valid()) {
		problems[string(FieldStatus)] = "unknown status"
	}
	if p.Description.Set && p.Description.Value == nil {
		problems[string(FieldDescription)] = "must not be null"
	}
	return problems
}

// ApplyFields copies every present non-status key onto t. Status changes go
// through the lifecycle state machine instead.
func (p TicketPatch) ApplyFields(t *Ticket) {
	if p.StudioID.Set && p.StudioID.Value != nil {
		t.StudioID = strings.TrimSpace(*p.StudioID.Value)
	}
	if p.CategoryID.Set && p.CategoryID.Value != nil {
		t.CategoryID = strings.TrimSpace(*p.CategoryID.Value)
	}
	if p.SubcategoryID.Set {
		t.SubcategoryID = cloneString(p.SubcategoryID.Value)
	}
	if p.Priority.Set && p.Priority.Value != nil {
		t.Priority = *p.Priority.Value
	}
	if p.Source.Set && p.Source.Value != nil {
		t.Source = *p.Source.Value
	}
	if p.AssignedToUserID.Set {
		t.AssignedToUserID = cloneString(p.AssignedToUserID.Value)
	}
	if p.Title.Set && p.Title.Value != nil {
		t.Title = strings.TrimSpace(*p.Title.Value)
	}
	if p.Description.Set && p.Description.Value != nil {
		t.Description = strings.TrimSpace(*p.Description.Value)
	}
	if p.CustomerName.Set {
		t.CustomerName = cloneString(p.CustomerName.Value)
	}
	if p.CustomerEmail.Set {
		t.CustomerEmail = cloneString(p.CustomerEmail.Value)
	}
	if p.CustomerPhone.Set {
		t.CustomerPhone = cloneString(p.CustomerPhone.Value)
	}
	if p.SLADueAt.Set {
		t.SLADueAt = cloneTime(p.SLADueAt.Value)
	}
	if p.FirstResponseAt.Set {
		t.FirstResponseAt = cloneTime(p.FirstResponseAt.Value)
	}
}
