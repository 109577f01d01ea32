package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("no such table"), false},
		{"busy text", errors.New("SQLITE_BUSY: cannot commit"), true},
		{"locked text", errors.New("database is locked (5)"), true},
		{"wrapped busy", fmt.Errorf("upsert session: %w", errors.New("SQLITE_BUSY")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSQLiteConflictError(tt.err))
		})
	}
}
