package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstField returns the JSON name of the first failing field.
func firstField(t *testing.T, err error) string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	return verrs[0].Field()
}

func TestCreateJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       CreateJobRequest
		wantField string
	}{
		{name: "valid", req: CreateJobRequest{Title: "SRE", Company: "Acme", URL: "https://jobs.example.com/1"}},
		{name: "missing title", req: CreateJobRequest{Company: "Acme"}, wantField: "title"},
		{name: "missing company", req: CreateJobRequest{Title: "SRE"}, wantField: "company"},
		{name: "bad url", req: CreateJobRequest{Title: "SRE", Company: "Acme", URL: "not a url"}, wantField: "url"},
		{name: "empty label", req: CreateJobRequest{Title: "SRE", Company: "Acme", Labels: []string{""}}, wantField: "labels[0]"},
		{name: "long notes", req: CreateJobRequest{Title: "SRE", Company: "Acme", ClientNotes: strings.Repeat("x", 4001)}, wantField: "client_notes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantField, firstField(t, err))
		})
	}
}

func TestUpdateJobRequest_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateJobRequest{}).Validate())
	assert.NoError(t, (&UpdateJobRequest{Priority: Ptr(PriorityHigh)}).Validate())

	err := (&UpdateJobRequest{Priority: Ptr(Priority("urgent"))}).Validate()
	require.Error(t, err)
	assert.Equal(t, "priority", firstField(t, err))

	err = (&UpdateJobRequest{URL: Ptr("nope")}).Validate()
	require.Error(t, err)
	assert.Equal(t, "url", firstField(t, err))
}

func TestBulkJobsRequest_Validate(t *testing.T) {
	assert.NoError(t, (&BulkJobsRequest{JobIDs: []uuid.UUID{uuid.New()}}).Validate())
	assert.Error(t, (&BulkJobsRequest{}).Validate())
	assert.Error(t, (&BulkJobsRequest{JobIDs: make([]uuid.UUID, 501)}).Validate())
}

func TestProgressRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ProgressRequest{Status: JobStatusOffer}).Validate())
	assert.Error(t, (&ProgressRequest{Status: JobStatusApplied}).Validate())
}

func TestTriggerTailoringRequest_Validate(t *testing.T) {
	assert.NoError(t, (&TriggerTailoringRequest{}).Validate())
	assert.NoError(t, (&TriggerTailoringRequest{Mode: TailorModeDirect}).Validate())
	err := (&TriggerTailoringRequest{Mode: "eventually"}).Validate()
	require.Error(t, err)
	assert.Equal(t, "mode", firstField(t, err))
}

func TestGrantCreditsRequest_Validate(t *testing.T) {
	assert.NoError(t, (&GrantCreditsRequest{Amount: 5}).Validate())
	assert.Error(t, (&GrantCreditsRequest{Amount: 0}).Validate())
	assert.Error(t, (&GrantCreditsRequest{Amount: -3}).Validate())
}

func TestCannotApplyRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CannotApplyRequest{Reason: "posting closed"}).Validate())
	assert.Error(t, (&CannotApplyRequest{}).Validate())
}

func TestValidateContent(t *testing.T) {
	assert.NoError(t, ValidateContent(&TailoredContent{Summary: "ok"}))
	assert.Error(t, ValidateContent(&TailoredContent{}))

	err := ValidateContent(&TailoredContent{Summary: "ok", Experience: []ExperienceEntry{{Company: "Initech"}}})
	require.Error(t, err)
	assert.Equal(t, "title", firstField(t, err))
}
