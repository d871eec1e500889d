package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

func ptr(s string) *string { return &s }

func TestValidatePhotoRef(t *testing.T) {
	tests := []struct {
		ref   string
		valid bool
	}{
		{"after.jpg", true},
		{"reports/0b1c/after.jpg", true},
		{"https://cdn.example.com/p/after.jpg", true},
		{"http://cdn.example.com/after.jpg", true},
		{"", false},
		{"   ", false},
		{"/etc/passwd", false},
		{"reports/../../secret.jpg", false},
		{"..\\secret.jpg", false},
		{"ftp://cdn.example.com/a.jpg", false},
		{"https:///a.jpg", false},
		{strings.Repeat("a", MaxPhotoRefLength+1), false},
	}
	for _, tt := range tests {
		err := ValidatePhotoRef(tt.ref)
		if tt.valid {
			assert.NoError(t, err, tt.ref)
		} else {
			assert.Error(t, err, tt.ref)
		}
	}

	assert.ErrorIs(t, ValidatePhotoRef(" "), apperror.ErrPhotoRequired)
}

func TestValidateReport(t *testing.T) {
	assert.NoError(t, ValidateReport(ReportInput{}))
	assert.NoError(t, ValidateReport(ReportInput{
		Description: ptr("Пакеты у остановки"),
		PhotoBefore: ptr(""),
		City:        ptr("Санкт-Петербург"),
		Country:     ptr("RU"),
	}))

	tests := []struct {
		name string
		in   ReportInput
	}{
		{"long description", ReportInput{Description: ptr(strings.Repeat("я", MaxDescriptionLength+1))}},
		{"long city", ReportInput{City: ptr(strings.Repeat("a", MaxPlaceLength+1))}},
		{"markup in country", ReportInput{Country: ptr("<script>")}},
		{"bad photo", ReportInput{PhotoBefore: ptr("/tmp/x.jpg")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReport(tt.in)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestValidateComment(t *testing.T) {
	assert.NoError(t, ValidateComment(nil))
	assert.NoError(t, ValidateComment(ptr("всё чисто")))
	assert.Error(t, ValidateComment(ptr(strings.Repeat("x", MaxCommentLength+1))))
}

func TestValidateLength_CountsRunes(t *testing.T) {
	assert.NoError(t, ValidateLength("поле", "ёжик", 4, 4))
	assert.Error(t, ValidateLength("поле", "ёж", 3, 0))
}
