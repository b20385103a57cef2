package domain

import (
	"testing"
	"time"
)

func TestChangedPasswordAfter(t *testing.T) {
	changed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &User{PasswordChangedAt: &changed}

	if !user.ChangedPasswordAfter(changed.Add(-time.Second)) {
		t.Fatalf("expected token issued before the change to be stale")
	}
	if user.ChangedPasswordAfter(changed) {
		t.Fatalf("expected token issued at the change second to be accepted")
	}
	if user.ChangedPasswordAfter(changed.Add(time.Second)) {
		t.Fatalf("expected token issued after the change to be accepted")
	}

	fresh := &User{}
	if fresh.ChangedPasswordAfter(changed) {
		t.Fatalf("expected account without password change to accept any token")
	}
}

func TestHasPendingReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := "digest"
	expires := now.Add(5 * time.Minute)

	user := &User{PasswordResetToken: &token, PasswordResetExpires: &expires}
	if !user.HasPendingReset(now) {
		t.Fatalf("expected live reset")
	}
	if user.HasPendingReset(expires) {
		t.Fatalf("expected reset at the expiry instant to be dead")
	}
	if (&User{}).HasPendingReset(now) {
		t.Fatalf("expected no reset without stored fields")
	}
}

func TestRoleSet(t *testing.T) {
	admins := NewRoleSet(RoleAdmin)
	if !admins.Allows(RoleAdmin) {
		t.Fatalf("expected admin to be allowed")
	}
	if admins.Allows(RoleUser) {
		t.Fatalf("expected user to be rejected")
	}

	empty := NewRoleSet()
	for _, role := range knownRoles {
		if empty.Allows(role) {
			t.Fatalf("expected empty set to reject %s", role)
		}
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Lead-Guide ")
	if err != nil {
		t.Fatalf("ParseRole returned error: %v", err)
	}
	if role != RoleLeadGuide {
		t.Fatalf("expected lead-guide, got %s", role)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
