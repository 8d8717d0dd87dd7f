package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/data-siswa-api/internal/models"
	appErrors "github.com/noah-isme/data-siswa-api/pkg/errors"
)

const birthDateLayout = "2006-01-02"

// fieldAccessor reads and writes one student field as a string.
type fieldAccessor struct {
	get func(*models.Student) string
	set func(*models.Student, string) error
}

func stringField(get func(*models.Student) *string) fieldAccessor {
	return fieldAccessor{
		get: func(s *models.Student) string { return *get(s) },
		set: func(s *models.Student, v string) error {
			*get(s) = v
			return nil
		},
	}
}

// studentFields enumerates every field a change request or direct edit may
// touch. Identity, timestamps, verification state, and the account link are
// not listed, so they can never leak into a diff or be overwritten by a
// submitted field map.
var studentFields = map[string]fieldAccessor{
	"nisn":           stringField(func(s *models.Student) *string { return &s.NISN }),
	"nis":            stringField(func(s *models.Student) *string { return &s.NIS }),
	"full_name":      stringField(func(s *models.Student) *string { return &s.FullName }),
	"gender":         stringField(func(s *models.Student) *string { return &s.Gender }),
	"birth_place":    stringField(func(s *models.Student) *string { return &s.BirthPlace }),
	"religion":       stringField(func(s *models.Student) *string { return &s.Religion }),
	"nik":            stringField(func(s *models.Student) *string { return &s.NIK }),
	"alamat":         stringField(func(s *models.Student) *string { return &s.Alamat }),
	"rt":             stringField(func(s *models.Student) *string { return &s.RT }),
	"rw":             stringField(func(s *models.Student) *string { return &s.RW }),
	"dusun":          stringField(func(s *models.Student) *string { return &s.Dusun }),
	"kelurahan":      stringField(func(s *models.Student) *string { return &s.Kelurahan }),
	"kecamatan":      stringField(func(s *models.Student) *string { return &s.Kecamatan }),
	"kode_pos":       stringField(func(s *models.Student) *string { return &s.KodePos }),
	"phone":          stringField(func(s *models.Student) *string { return &s.Phone }),
	"email":          stringField(func(s *models.Student) *string { return &s.Email }),
	"father_name":    stringField(func(s *models.Student) *string { return &s.FatherName }),
	"father_nik":     stringField(func(s *models.Student) *string { return &s.FatherNIK }),
	"mother_name":    stringField(func(s *models.Student) *string { return &s.MotherName }),
	"mother_nik":     stringField(func(s *models.Student) *string { return &s.MotherNIK }),
	"guardian_phone": stringField(func(s *models.Student) *string { return &s.GuardianPhone }),
	"birth_date": {
		get: func(s *models.Student) string {
			if s.BirthDate == nil {
				return ""
			}
			return s.BirthDate.Format(birthDateLayout)
		},
		set: func(s *models.Student, v string) error {
			if v == "" {
				s.BirthDate = nil
				return nil
			}
			parsed, err := time.Parse(birthDateLayout, v)
			if err != nil {
				return fmt.Errorf("birth_date must be YYYY-MM-DD: %w", err)
			}
			s.BirthDate = &parsed
			return nil
		},
	},
}

// studentFieldOrder fixes a stable column order for exports and review views.
var studentFieldOrder = []string{
	"nisn", "nis", "full_name", "gender", "birth_place", "birth_date",
	"religion", "nik", "alamat", "rt", "rw", "dusun", "kelurahan",
	"kecamatan", "kode_pos", "phone", "email", "father_name", "father_nik",
	"mother_name", "mother_nik", "guardian_phone",
}

// StudentFieldNames returns the editable field names in export order.
func StudentFieldNames() []string {
	names := make([]string, len(studentFieldOrder))
	copy(names, studentFieldOrder)
	return names
}

// StudentFieldMap flattens a student's editable fields into strings.
func StudentFieldMap(s *models.Student) map[string]string {
	values := make(map[string]string, len(studentFields))
	for name, accessor := range studentFields {
		values[name] = accessor.get(s)
	}
	return values
}

// DiffStudents compares two student records field by field.
func DiffStudents(before, after *models.Student) map[string]models.FieldChange {
	return DiffFieldMaps(StudentFieldMap(before), StudentFieldMap(after))
}

// DiffFieldMaps returns the keys whose values differ between the two maps.
// Keys outside the enumerated student fields are ignored.
func DiffFieldMaps(before, after map[string]string) map[string]models.FieldChange {
	diff := make(map[string]models.FieldChange)
	for name := range studentFields {
		oldValue := before[name]
		newValue := after[name]
		if oldValue != newValue {
			diff[name] = models.FieldChange{Old: oldValue, New: newValue}
		}
	}
	return diff
}

// ApplyStudentChanges writes a submitted field map onto the student.
// Unknown field names are rejected, which also covers every denylisted
// column since those are simply not enumerated.
func ApplyStudentChanges(s *models.Student, changes map[string]string) error {
	for name := range changes {
		if _, ok := studentFields[name]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field: %s", name))
		}
	}
	for name, value := range changes {
		if err := studentFields[name].set(s, value); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid value for %s", name))
		}
	}
	return nil
}
