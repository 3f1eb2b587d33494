package repository

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTranslateErrorDuplicateKey(t *testing.T) {
	err := translateError(gorm.ErrDuplicatedKey)
	require.ErrorIs(t, err, ErrDuplicateKey)

	wrapped := errors.Wrap(translateError(gorm.ErrDuplicatedKey), "failed to create delivery")
	require.ErrorIs(t, wrapped, ErrDuplicateKey)
}

func TestTranslateErrorPassesThroughOtherErrors(t *testing.T) {
	require.ErrorIs(t, translateError(gorm.ErrRecordNotFound), gorm.ErrRecordNotFound)
	require.NoError(t, translateError(nil))
}
