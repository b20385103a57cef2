package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/njprem/tours-auth-api/internal/repository/ports"
)

func TestMapError(t *testing.T) {
	other := errors.New("boom")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ports.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ports.ErrNotFound},
		{"email unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}, ports.ErrEmailTaken},
		{"other unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_password_reset_token_key"}, nil},
		{"other", other, other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapError(tc.in)
			if tc.want == nil {
				if got != tc.in {
					t.Fatalf("expected passthrough, got %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Mixed@Case.IO "); got != "mixed@case.io" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}
