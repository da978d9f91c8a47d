package custody

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erazemk/custody/internal/store"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, KindValidation, Classify(fmt.Errorf("wrapped: %w", ErrMissingDetails)))
	assert.Equal(t, KindConcurrency, Classify(ErrConcurrentModification))
	assert.Equal(t, KindConcurrency, Classify(ErrDuplicateCertificate))
	assert.Equal(t, KindConcurrency, Classify(ErrLedgerBusy))
	assert.Equal(t, KindNumbering, Classify(ErrNumberingUnavailable))
	assert.Equal(t, KindInternal, Classify(errors.New("disk on fire")))
	assert.Equal(t, KindInternal, Classify(nil))

	assert.Equal(t, "MissingRecorder", Code(ErrMissingRecorder))
	assert.Equal(t, "Internal", Code(errors.New("x")))
	assert.Equal(t, "concurrency", KindConcurrency.String())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{fmt.Errorf("x: %w", store.ErrConflict), ErrConcurrentModification},
		{fmt.Errorf("x: %w", store.ErrDuplicateCertificate), ErrDuplicateCertificate},
		{fmt.Errorf("x: %w", store.ErrNumberingUnavailable), ErrNumberingUnavailable},
		{fmt.Errorf("x: %w", store.ErrNotFound), ErrEquipmentNotFound},
	}
	for _, tt := range tests {
		got := translate(tt.in)
		assert.ErrorIs(t, got, tt.want)
		assert.ErrorIs(t, got, errors.Unwrap(tt.in), "store cause stays in the chain")
	}

	other := errors.New("io")
	assert.ErrorIs(t, translate(other), other)
	assert.Equal(t, KindInternal, Classify(translate(other)))
}
