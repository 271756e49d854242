package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

func TestEffectiveCapacityTakesMinimum(t *testing.T) {
	cases := []struct {
		name     string
		room     int
		class    int
		expected int
	}{
		{"room smaller", 15, 30, 15},
		{"class type smaller", 40, 25, 25},
		{"equal", 20, 20, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			capacity, err := EffectiveCapacity(
				&models.Room{ID: "room-1", Capacity: tc.room},
				&models.ClassType{ID: "type-1", DefaultCapacity: tc.class},
			)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, capacity)
		})
	}
}

func TestEffectiveCapacityRejectsZero(t *testing.T) {
	_, err := EffectiveCapacity(
		&models.Room{ID: "room-1", Capacity: 0},
		&models.ClassType{ID: "type-1", DefaultCapacity: 10},
	)
	assert.ErrorIs(t, err, appErrors.ErrZeroCapacity)
}
