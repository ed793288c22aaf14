package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/tournament-scheduler/backend/internal/domain"
)

func TestGeneColumns(t *testing.T) {
	rows, cols, values := geneColumns([]domain.Gene{
		{Row: 0, Column: 0, Value: 1},
		{Row: 0, Column: 1, Value: 1},
		{Row: 1, Column: 0, Value: 0},
	})

	assert.Equal(t, []int32{0, 0, 1}, rows)
	assert.Equal(t, []int32{0, 1, 0}, cols)
	assert.Equal(t, []int32{1, 1, 0}, values)
}

func TestGeneColumns_Empty(t *testing.T) {
	rows, cols, values := geneColumns(nil)
	assert.Empty(t, rows)
	assert.Empty(t, cols)
	assert.Empty(t, values)
}
