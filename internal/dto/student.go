package dto

import "time"

// StudentPayload holds the writable demographic fields for create/update.
type StudentPayload struct {
	NISN          string     `json:"nisn" validate:"required"`
	NIS           string     `json:"nis"`
	FullName      string     `json:"full_name" validate:"required"`
	Gender        string     `json:"gender" validate:"required,oneof=L P"`
	BirthPlace    string     `json:"birth_place"`
	BirthDate     *time.Time `json:"birth_date"`
	Religion      string     `json:"religion"`
	NIK           string     `json:"nik"`
	Alamat        string     `json:"alamat"`
	RT            string     `json:"rt"`
	RW            string     `json:"rw"`
	Dusun         string     `json:"dusun"`
	Kelurahan     string     `json:"kelurahan"`
	Kecamatan     string     `json:"kecamatan"`
	KodePos       string     `json:"kode_pos"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email" validate:"omitempty,email"`
	FatherName    string     `json:"father_name"`
	FatherNIK     string     `json:"father_nik"`
	MotherName    string     `json:"mother_name"`
	MotherNIK     string     `json:"mother_nik"`
	GuardianPhone string     `json:"guardian_phone"`
}

// ImportRowError reports one rejected row from an Excel import.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportSummary aggregates the outcome of a bulk student import.
type ImportSummary struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors,omitempty"`
}

// DedupSummary reports the outcome of the NISN duplicate cleanup routine.
type DedupSummary struct {
	Groups  int      `json:"groups"`
	Deleted int      `json:"deleted"`
	Kept    []string `json:"kept"`
}
