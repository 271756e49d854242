package service

import (
	"github.com/noah-isme/gym-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/gym-scheduling-api/pkg/errors"
)

// EffectiveCapacity resolves the capacity a schedule advertises: the lower
// of the room's physical capacity and the class type's default. Pure and
// deterministic. A zero result means a zero-capacity room or class type
// slipped past earlier validation and the write is rejected.
func EffectiveCapacity(room *models.Room, classType *models.ClassType) (int, error) {
	capacity := room.Capacity
	if classType.DefaultCapacity < capacity {
		capacity = classType.DefaultCapacity
	}
	if capacity <= 0 {
		return 0, appErrors.ErrZeroCapacity
	}
	return capacity, nil
}
