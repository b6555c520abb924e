package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Date    time.Time `json:"date" validate:"required"`
	Subject string    `json:"student" validate:"notblank"`
	Code    string    `json:"error_code" validate:"required,len=4"`
	Amount  int64     `json:"amount" validate:"min=0"`
}

func TestValidateStruct(t *testing.T) {
	valid := sampleRequest{Date: time.Now(), Subject: "Jane Doe", Code: "VP01"}
	require.NoError(t, ValidateStruct(valid))

	err := ValidateStruct(sampleRequest{Subject: "  ", Code: "VP1", Amount: -5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
	assert.Equal(t, "student cannot be blank", verr.Fields["student"])
	assert.Contains(t, verr.Fields, "date")
	assert.Contains(t, verr.Fields, "error_code")
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, err.Error(), "validation failed: ")
}
