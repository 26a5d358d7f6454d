package privsplit_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privsplit/privsplit"
)

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		check    func(error) bool
	}{
		{
			name:     "item kind",
			err:      privsplit.NewItemKindError("Config", "const declaration", "file.go:3:1"),
			sentinel: privsplit.ErrUnsupportedItemKind,
			check:    privsplit.IsUnsupportedItemKind,
		},
		{
			name:     "unreachable generic",
			err:      privsplit.NewGenericError("helper", "T", "file.go:10:1"),
			sentinel: privsplit.ErrUnreachableGeneric,
			check:    privsplit.IsUnreachableGeneric,
		},
		{
			name:     "marker arguments",
			err:      privsplit.NewMarkerError("Unlock", []string{"level=3"}, "file.go:7:1"),
			sentinel: privsplit.ErrMarkerArguments,
			check:    privsplit.IsMarkerArguments,
		},
		{
			name:     "conflicting marker",
			err:      privsplit.NewConflictError("Unlock", "marker appears more than once", "file.go:7:1"),
			sentinel: privsplit.ErrConflictingMarker,
			check:    privsplit.IsConflictingMarker,
		},
		{
			name:     "trait method not marked",
			err:      privsplit.NewContractError("Store", "Put", "diskStore", "file.go:20:1"),
			sentinel: privsplit.ErrTraitMethodNotMarked,
			check:    privsplit.IsTraitMethodNotMarked,
		},
		{
			name:     "invalid config",
			err:      privsplit.NewConfigError("Workers", -1, "cannot be negative"),
			sentinel: privsplit.ErrInvalidConfig,
			check:    privsplit.IsConfigError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.NotErrorIs(t, tt.err, errors.New("unrelated"))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := privsplit.NewItemKindError("Config", "const declaration", "vault.go:3:1")
	assert.Contains(t, err.Error(), "const declaration")
	assert.Contains(t, err.Error(), `"Config"`)
	assert.Contains(t, err.Error(), "vault.go:3:1")

	gerr := privsplit.NewGenericError("helper", "T", "vault.go:10:1")
	assert.Contains(t, gerr.Error(), `"T"`)
	assert.Contains(t, gerr.Error(), `"helper"`)

	merr := privsplit.NewMarkerError("Unlock", []string{"level=3"}, "")
	assert.Contains(t, merr.Error(), "level=3")

	cerr := privsplit.NewContractError("Store", "Put", "diskStore", "")
	assert.Contains(t, cerr.Error(), "Store")
	assert.Contains(t, cerr.Error(), `"Put"`)
	assert.Contains(t, cerr.Error(), "diskStore")
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		privsplit.ErrUnsupportedItemKind,
		privsplit.ErrUnreachableGeneric,
		privsplit.ErrMarkerArguments,
		privsplit.ErrTraitMethodNotMarked,
		privsplit.ErrConflictingMarker,
		privsplit.ErrInvalidConfig,
	}
	for i, a := range sentinels {
		require.NotNil(t, a)
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
