package importer

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/org-management/internal"
)

// Import kinds and job statuses.
const (
	KindDepartments = "departments"
	KindUsers       = "users"
	KindFacilities  = "facilities"

	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RowError names one offending CSV row. Row numbers are 1-based and count
// the header line, matching what a user sees in a spreadsheet.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportJob is the persisted record of one upload. Jobs survive restarts, so
// a client can poll the status endpoint at any time.
type ImportJob struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Kind         string    `json:"kind" gorm:"not null"`
	Status       string    `json:"status" gorm:"not null"`
	TotalRows    int       `json:"total_rows" gorm:"column:total_rows"`
	ImportedRows int       `json:"imported_rows" gorm:"column:imported_rows"`
	ErrorsJSON   string    `json:"-" gorm:"column:row_errors"`
	CreatedBy    int64     `json:"created_by" gorm:"column:created_by"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`

	Errors []RowError `json:"errors" gorm:"-"`
}

// TableName returns the table name for GORM
func (ImportJob) TableName() string {
	return "import_jobs"
}

func (j *ImportJob) EncodeErrors() {
	if len(j.Errors) == 0 {
		j.ErrorsJSON = ""
		return
	}
	if b, err := json.Marshal(j.Errors); err == nil {
		j.ErrorsJSON = string(b)
	}
}

func (j *ImportJob) DecodeErrors() {
	j.Errors = []RowError{}
	if j.ErrorsJSON == "" {
		return
	}
	_ = json.Unmarshal([]byte(j.ErrorsJSON), &j.Errors)
}

// Parsed row shapes. References are by name/email, resolved during commit.
type DepartmentRow struct {
	Name        string
	Description string
	ParentName  string
	HeadEmail   string
}

type UserRow struct {
	Email          string
	Name           string
	PasswordHash   string
	Role           string
	DepartmentName string
	ManagerEmail   string
}

type FacilityRow struct {
	Name           string
	Type           string
	Capacity       int
	Location       string
	Status         string
	DepartmentName string
}

// Domain errors
var (
	ErrJobNotFound = internal.NewNotFoundError("import job not found", internal.ErrCodeImportJobNotFound)
	ErrEmptyFile   = internal.NewValidationError("import file has no data rows", internal.ErrCodeImportFailed)
	ErrBadHeader   = internal.NewValidationError("import file header does not match the expected columns", internal.ErrCodeImportFailed)
)

// NewImportError wraps the per-row failures of a rejected batch. Nothing
// from the batch is committed.
func NewImportError(rowErrors []RowError) *internal.AppError {
	return internal.NewValidationError("import rejected, no rows were committed", internal.ErrCodeImportFailed).
		WithDetails(map[string]interface{}{"errors": rowErrors})
}
