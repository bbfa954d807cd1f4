package service

import (
	"context"
	"testing"
)

func TestClientService_CreateAndSearch(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewClientService(gdb)
	ctx := context.Background()

	created, err := svc.Create(ctx, ClientInput{Name: "  Acme Corp ", ContactEmail: "ops@acme.test", Status: "weird"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if created.Name != "Acme Corp" || created.Status != "active" {
		t.Fatalf("unexpected client: %+v", created)
	}

	if _, err := svc.Create(ctx, ClientInput{Name: "Acme Corp"}); err != ErrClientExists {
		t.Fatalf("expected ErrClientExists, got %v", err)
	}
	if _, err := svc.Create(ctx, ClientInput{Name: "Initech", Status: "INACTIVE"}); err != nil {
		t.Fatalf("create second client: %v", err)
	}

	found, err := svc.List(ctx, "acme.test")
	if err != nil {
		t.Fatalf("search clients: %v", err)
	}
	if len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("expected search to match by contact email, got %+v", found)
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(all) != 2 || all[1].Status != "inactive" {
		t.Fatalf("unexpected client list: %+v", all)
	}

	if _, err := svc.Get(ctx, 404); err != ErrClientNotFound {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, ClientInput{Name: "   "}); err == nil {
		t.Fatal("expected validation error for empty name")
	}
}

func TestServiceCatalog_CreateAndFilter(t *testing.T) {
	gdb := setupServiceTestDB(t)
	catalog := NewServiceCatalog(gdb)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    ServiceInput
		wantErr  bool
		category string
	}{
		{name: "normalizes category", input: ServiceInput{Name: "Google Ads", Category: " Google_Ads "}, category: "google_ads"},
		{name: "category without schema", input: ServiceInput{Name: "Copywriting", Category: "content_writing"}, category: "content_writing"},
		{name: "missing fields", input: ServiceInput{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := catalog.Create(ctx, tt.input)
			if tt.wantErr {
				verr, ok := err.(*ValidationError)
				if !ok || len(verr.Fields) != 2 {
					t.Fatalf("expected name and category errors, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("create service: %v", err)
			}
			if svc.Category != tt.category {
				t.Fatalf("expected category %q, got %q", tt.category, svc.Category)
			}
		})
	}

	if _, err := catalog.Create(ctx, ServiceInput{Name: "Google Ads", Category: "meta_ads"}); err != ErrServiceExists {
		t.Fatalf("expected ErrServiceExists, got %v", err)
	}

	ads, err := catalog.List(ctx, "google_ads")
	if err != nil {
		t.Fatalf("list services: %v", err)
	}
	if len(ads) != 1 || ads[0].Name != "Google Ads" {
		t.Fatalf("unexpected filtered services: %+v", ads)
	}
}
