package models

import "time"

// Student represents a learner's demographic record. NISN is the national
// student number used as the external natural key; NIK fields are national
// identity numbers for the student and parents.
type Student struct {
	ID            string     `db:"id" json:"id"`
	UserID        *string    `db:"user_id" json:"user_id,omitempty"`
	NISN          string     `db:"nisn" json:"nisn"`
	NIS           string     `db:"nis" json:"nis"`
	FullName      string     `db:"full_name" json:"full_name"`
	Gender        string     `db:"gender" json:"gender"`
	BirthPlace    string     `db:"birth_place" json:"birth_place"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Religion      string     `db:"religion" json:"religion"`
	NIK           string     `db:"nik" json:"nik"`
	Alamat        string     `db:"alamat" json:"alamat"`
	RT            string     `db:"rt" json:"rt"`
	RW            string     `db:"rw" json:"rw"`
	Dusun         string     `db:"dusun" json:"dusun"`
	Kelurahan     string     `db:"kelurahan" json:"kelurahan"`
	Kecamatan     string     `db:"kecamatan" json:"kecamatan"`
	KodePos       string     `db:"kode_pos" json:"kode_pos"`
	Phone         string     `db:"phone" json:"phone"`
	Email         string     `db:"email" json:"email"`
	FatherName    string     `db:"father_name" json:"father_name"`
	FatherNIK     string     `db:"father_nik" json:"father_nik"`
	MotherName    string     `db:"mother_name" json:"mother_name"`
	MotherNIK     string     `db:"mother_nik" json:"mother_nik"`
	GuardianPhone string     `db:"guardian_phone" json:"guardian_phone"`
	IsVerified    bool       `db:"is_verified" json:"is_verified"`
	VerifiedAt    *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Verified  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentStats summarises verification progress across all students.
type StudentStats struct {
	Total      int `db:"total" json:"total"`
	Verified   int `db:"verified" json:"verified"`
	Unverified int `db:"unverified" json:"unverified"`
}

// DuplicateGroup captures students sharing one NISN, oldest first.
type DuplicateGroup struct {
	NISN     string    `json:"nisn"`
	Students []Student `json:"students"`
}
