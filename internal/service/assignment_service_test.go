package service

import (
	"context"
	"testing"

	"github.com/agencyops/internal/db"
)

func TestAssignmentService_CreateListDelete(t *testing.T) {
	f := newReportFixture(t, "seo")
	svc := NewAssignmentService(f.db)
	ctx := context.Background()

	other := db.Client{Name: "Globex", Status: "active"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}

	created, err := svc.Create(ctx, AssignmentInput{EmployeeID: f.employee.ID, ClientID: other.ID, ServiceID: f.service.ID, CreatedBy: f.admin.ID})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	if _, err := svc.Create(ctx, AssignmentInput{EmployeeID: f.employee.ID, ClientID: other.ID, ServiceID: f.service.ID}); err != ErrAssignmentExists {
		t.Fatalf("expected ErrAssignmentExists, got %v", err)
	}

	list, err := svc.ListForEmployee(ctx, f.employee.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(list))
	}
	if list[0].ClientName != "Acme" || list[1].ClientName != "Globex" {
		t.Fatalf("expected assignments ordered by client name, got %+v", list)
	}
	if !list[0].HasSchema() || list[0].Category != "seo" {
		t.Fatalf("expected seo schema on assignment, got %+v", list[0])
	}

	allowed, err := svc.Allowed(ctx, f.employee.ID, other.ID, f.service.ID)
	if err != nil || !allowed {
		t.Fatalf("expected assignment to allow reporting, allowed=%v err=%v", allowed, err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete assignment: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != ErrAssignmentNotFound {
		t.Fatalf("expected ErrAssignmentNotFound, got %v", err)
	}

	allowed, err = svc.Allowed(ctx, f.employee.ID, other.ID, f.service.ID)
	if err != nil || allowed {
		t.Fatalf("expected deleted assignment to deny reporting, allowed=%v err=%v", allowed, err)
	}
}

func TestAssignmentService_CreateValidation(t *testing.T) {
	f := newReportFixture(t, "seo")
	svc := NewAssignmentService(f.db)
	ctx := context.Background()

	_, err := svc.Create(ctx, AssignmentInput{})
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 invalid fields, got %v", verr.FieldNames())
	}

	tests := []struct {
		name  string
		input AssignmentInput
		want  error
	}{
		{"unknown employee", AssignmentInput{EmployeeID: 999, ClientID: f.client.ID, ServiceID: f.service.ID}, ErrEmployeeNotFound},
		{"unknown client", AssignmentInput{EmployeeID: f.employee.ID, ClientID: 999, ServiceID: f.service.ID}, ErrClientNotFound},
		{"unknown service", AssignmentInput{EmployeeID: f.employee.ID, ClientID: f.client.ID, ServiceID: 999}, ErrServiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.input); err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAssignmentService_ListHidesDeletedClients(t *testing.T) {
	f := newReportFixture(t, "seo")
	svc := NewAssignmentService(f.db)

	if err := f.db.Delete(&f.client).Error; err != nil {
		t.Fatalf("soft delete client: %v", err)
	}

	list, err := svc.ListForEmployee(context.Background(), f.employee.ID)
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no assignments for deleted client, got %d", len(list))
	}
}
