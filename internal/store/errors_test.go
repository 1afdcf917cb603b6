package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		isNotFound  bool
		isDuplicate bool
	}{
		{"ErrNotFound", ErrNotFound, true, false},
		{"ErrTaskNotFound", ErrTaskNotFound, true, false},
		{"ErrNoEligibleTask", ErrNoEligibleTask, true, false},
		{"ErrDuplicate", ErrDuplicate, false, true},
		{"ErrRecordExists", ErrRecordExists, false, true},
		{"ErrInvalidEntity", ErrInvalidEntity, false, false},
		{"wrapped not-found", fmt.Errorf("get task: %w", ErrTaskNotFound), true, false},
		{"wrapped duplicate", fmt.Errorf("save record: %w", ErrRecordExists), false, true},
		{"unrelated", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.isNotFound, IsNotFoundError(tc.err))
			assert.Equal(t, tc.isDuplicate, IsDuplicateError(tc.err))
		})
	}
}

func TestStoreErrorUnwrap(t *testing.T) {
	t.Parallel()

	storeErr := NewStoreError("task", "update", "no rows affected", ErrTaskNotFound)

	assert.True(t, IsNotFoundError(storeErr))
	assert.ErrorIs(t, storeErr, ErrTaskNotFound)
	assert.Contains(t, storeErr.Error(), "update operation on task failed")
	assert.Contains(t, storeErr.Error(), "no rows affected")
}

func TestStoreErrorWithoutWrapped(t *testing.T) {
	t.Parallel()

	storeErr := NewStoreError("address_record", "save", "marshal headers", nil)

	assert.Nil(t, errors.Unwrap(storeErr))
	assert.Equal(t, "save operation on address_record failed: marshal headers", storeErr.Error())
}
