package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://u:p@db/app", "pgx5://u:p@db/app"},
		{"pgx5://u:p@db/app", "pgx5://u:p@db/app"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MigrationDSN(tt.in))
	}
}
