package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTicketPatchPresence(t *testing.T) {
	var patch TicketPatch
	body := `{"assignedToUserId":null,"title":"  New title ","priority":"high"}`
	if err := json.Unmarshal([]byte(body), &patch); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []TicketField{FieldPriority, FieldAssignedToUserID, FieldTitle}
	if got := patch.Fields(); !reflect.DeepEqual(got, want) {
		t.Fatalf("fields = %v, want %v", got, want)
	}
	if patch.CustomerName.Set {
		t.Fatalf("absent key marked present")
	}

	owner := "u-1"
	ticket := &Ticket{Title: "Old", AssignedToUserID: &owner, Priority: TicketPriorityLow, CustomerName: &owner}
	patch.ApplyFields(ticket)
	if ticket.AssignedToUserID != nil {
		t.Fatalf("explicit null did not clear assignee")
	}
	if ticket.Title != "New title" || ticket.Priority != TicketPriorityHigh {
		t.Fatalf("ticket = %+v", ticket)
	}
	if ticket.CustomerName == nil {
		t.Fatalf("absent key cleared customerName")
	}
}

func TestTicketPatchProblems(t *testing.T) {
	tests := []struct {
		name string
		body string
		key  string
	}{
		{"null title", `{"title":null}`, "title"},
		{"blank studio", `{"studioId":"  "}`, "studioId"},
		{"bad priority", `{"priority":"urgent"}`, "priority"},
		{"bad status", `{"status":"archived"}`, "status"},
		{"null description", `{"description":null}`, "description"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var patch TicketPatch
			if err := json.Unmarshal([]byte(tc.body), &patch); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, ok := patch.Problems()[tc.key]; !ok {
				t.Fatalf("problems = %v, want key %q", patch.Problems(), tc.key)
			}
		})
	}

	var empty TicketPatch
	if !empty.IsEmpty() || len(empty.Problems()) != 0 {
		t.Fatalf("empty patch misreported")
	}
}
