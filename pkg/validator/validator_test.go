package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reindexParams struct {
	Status    string `validate:"omitempty,oneof=active draft archived"`
	BatchSize int    `validate:"min=1,max=1000"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(reindexParams{Status: "active", BatchSize: 100})
	assert.NoError(t, err)
}

func TestValidate_OmitemptySkipsZeroValue(t *testing.T) {
	err := Validate(reindexParams{BatchSize: 1})
	assert.NoError(t, err)
}

func TestValidate_OneofRejectsUnknownValue(t *testing.T) {
	err := Validate(reindexParams{Status: "published", BatchSize: 10})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "Status")
	assert.Equal(t, "must be one of: active draft archived", fields["Status"])
}

func TestValidate_RangeBounds(t *testing.T) {
	err := Validate(reindexParams{Status: "draft", BatchSize: 0})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at least 1", valErr.Fields()["BatchSize"])

	err = Validate(reindexParams{Status: "draft", BatchSize: 5000})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at most 1000", valErr.Fields()["BatchSize"])
}

func TestValidationError_MessageListsAllFailures(t *testing.T) {
	err := Validate(reindexParams{Status: "published", BatchSize: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Status")
	assert.Contains(t, err.Error(), "BatchSize")
}
