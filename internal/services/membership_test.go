package services

import (
	"context"
	"testing"

	"github.com/creatorclub/backend/internal/models"
)

func TestMembershipStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	ctx := context.Background()
	svc.Grant(ctx, "u1", "c1", models.SourceDirect)

	tests := []struct {
		name   string
		userID string
		want   MembershipStatus
	}{
		{"anonymous", "", StatusNonMember},
		{"member", "u1", StatusMember},
		{"non member", "u2", StatusNonMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Status(ctx, tt.userID, "c1"); got != tt.want {
				t.Errorf("Status() = %s, expected %s", got, tt.want)
			}
		})
	}
}

func TestMembershipStatus_LookupErrorIsUnknown(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	db.Migrator().DropTable(&models.Membership{})

	if got := svc.Status(context.Background(), "u1", "c1"); got != StatusUnknown {
		t.Errorf("Status() = %s, expected unknown", got)
	}
}

func TestGrant_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	ctx := context.Background()

	created, err := svc.Grant(ctx, "u1", "c1", models.SourceDirect)
	if err != nil || !created {
		t.Fatalf("first Grant() = (%v, %v), expected (true, nil)", created, err)
	}
	created, err = svc.Grant(ctx, "u1", "c1", models.SourceCheckout)
	if err != nil {
		t.Fatalf("second Grant() error = %v", err)
	}
	if created {
		t.Error("second Grant() should report created=false")
	}
	if n := membershipCount(t, db, "u1", "c1"); n != 1 {
		t.Errorf("membership rows = %d, expected 1", n)
	}

	var m models.Membership
	db.First(&m, "user_id = ? AND community_id = ?", "u1", "c1")
	if m.Source != models.SourceDirect {
		t.Errorf("Source = %q, the original row should be untouched", m.Source)
	}
}

func TestListForUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewMembershipService(db)
	ctx := context.Background()
	seedCommunity(t, db, "c1", models.PricingFree, 0)
	seedCommunity(t, db, "c2", models.PricingFree, 0)
	svc.Grant(ctx, "u1", "c1", models.SourceDirect)

	list, err := svc.ListForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "c1" {
		t.Errorf("ListForUser() = %+v, expected [c1]", list)
	}
}

func TestMembershipStatus_MarshalText(t *testing.T) {
	b, _ := StatusMember.MarshalText()
	if string(b) != "member" {
		t.Errorf("MarshalText() = %q", b)
	}
}
