package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

func TestStudentFieldMapExcludesProtectedColumns(t *testing.T) {
	now := time.Now()
	student := &models.Student{
		ID:         "student-1",
		FullName:   "Siti Rahma",
		NISN:       "0051234567",
		IsVerified: true,
		VerifiedAt: &now,
	}

	fields := StudentFieldMap(student)

	require.Equal(t, "Siti Rahma", fields["full_name"])
	for _, protected := range []string{"id", "user_id", "is_verified", "verified_at", "created_at", "updated_at", "password"} {
		_, ok := fields[protected]
		require.False(t, ok, "field %s must not be exposed", protected)
	}
}

func TestDiffStudentsReportsChangedFieldsOnly(t *testing.T) {
	before := &models.Student{FullName: "Budi", Alamat: "Jl. Melati 1", Phone: "0811"}
	after := *before
	after.Alamat = "Jl. Mawar 2"

	diff := DiffStudents(before, &after)

	require.Len(t, diff, 1)
	require.Equal(t, models.FieldChange{Old: "Jl. Melati 1", New: "Jl. Mawar 2"}, diff["alamat"])
}

func TestApplyStudentChangesRejectsUnknownField(t *testing.T) {
	student := &models.Student{FullName: "Budi"}

	err := ApplyStudentChanges(student, map[string]string{"is_verified": "true"})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Equal(t, "Budi", student.FullName)
}

func TestApplyStudentChangesIsAllOrNothingOnUnknownKey(t *testing.T) {
	student := &models.Student{FullName: "Budi"}

	err := ApplyStudentChanges(student, map[string]string{
		"full_name": "Budiman",
		"password":  "x",
	})

	require.Error(t, err)
	require.Equal(t, "Budi", student.FullName)
}

func TestApplyStudentChangesParsesBirthDate(t *testing.T) {
	student := &models.Student{}

	require.NoError(t, ApplyStudentChanges(student, map[string]string{"birth_date": "2008-02-29"}))
	require.NotNil(t, student.BirthDate)
	require.Equal(t, "2008-02-29", student.BirthDate.Format("2006-01-02"))

	require.NoError(t, ApplyStudentChanges(student, map[string]string{"birth_date": ""}))
	require.Nil(t, student.BirthDate)

	err := ApplyStudentChanges(student, map[string]string{"birth_date": "29/02/2008"})
	require.Error(t, err)
}

func TestDiffFieldMapsIgnoresUnknownKeys(t *testing.T) {
	before := map[string]string{"full_name": "Budi", "bogus": "a"}
	after := map[string]string{"full_name": "Budi", "bogus": "b"}

	require.Empty(t, DiffFieldMaps(before, after))
}
