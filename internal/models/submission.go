package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type Category string

const (
	CategoryBiology       Category = "biology"
	CategoryChemistry     Category = "chemistry"
	CategoryPhysics       Category = "physics"
	CategoryEnvironmental Category = "environmental"
	CategoryMedical       Category = "medical"
	CategoryOther         Category = "other"
)

func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryBiology, CategoryChemistry, CategoryPhysics, CategoryEnvironmental, CategoryMedical, CategoryOther:
		return Category(s), true
	}
	return "", false
}

type DataType string

const (
	DataTypeForm        DataType = "form_data"
	DataTypeCSVUpload   DataType = "csv_upload"
	DataTypeExcelUpload DataType = "excel_upload"
	DataTypeManualEntry DataType = "manual_entry"
)

func ParseDataType(s string) (DataType, bool) {
	switch DataType(s) {
	case DataTypeForm, DataTypeCSVUpload, DataTypeExcelUpload, DataTypeManualEntry:
		return DataType(s), true
	}
	return "", false
}

type SubmissionStatus string

const (
	StatusPending          SubmissionStatus = "pending"
	StatusUnderReview      SubmissionStatus = "under_review"
	StatusApproved         SubmissionStatus = "approved"
	StatusRejected         SubmissionStatus = "rejected"
	StatusRevisionRequired SubmissionStatus = "revision_required"
)

func ParseStatus(s string) (SubmissionStatus, bool) {
	switch SubmissionStatus(s) {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusRevisionRequired:
		return SubmissionStatus(s), true
	}
	return "", false
}

// IsDecision reports whether s is a terminal review decision.
func (s SubmissionStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusRevisionRequired
}

type ValidationStatus string

const (
	ValidationNotValidated ValidationStatus = "not_validated"
	ValidationValid        ValidationStatus = "valid"
	ValidationInvalid      ValidationStatus = "invalid"
	ValidationNeedsReview  ValidationStatus = "needs_review"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

type ValidationIssue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

type SubmitterType string

const (
	SubmitterResearcher SubmitterType = "researcher"
	SubmitterCitizen    SubmitterType = "citizen"
)

// PayloadKind tags the shape of a submission payload.
type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadForm
	PayloadTabular
	PayloadScalar
)

// Payload is a tagged union over the two payload shapes the platform accepts:
// a single free-form record (form data) or a list of uniform records
// (tabular uploads). Anything else decodes as PayloadScalar and is rejected
// by validation rather than at decode time, so the caller still gets a
// field-level validation issue instead of a bare 400.
type Payload struct {
	Kind    PayloadKind
	Form    map[string]any
	Records []map[string]any

	raw json.RawMessage // original bytes for the scalar arm
}

func FormPayload(m map[string]any) Payload {
	return Payload{Kind: PayloadForm, Form: m}
}

func TabularPayload(rows []map[string]any) Payload {
	return Payload{Kind: PayloadTabular, Records: rows}
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = Payload{}
		return nil
	}
	switch trimmed[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		*p = Payload{Kind: PayloadForm, Form: m}
	case '[':
		var rows []any
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return err
		}
		records := make([]map[string]any, len(rows))
		for i, row := range rows {
			if m, ok := row.(map[string]any); ok {
				records[i] = m
			} else {
				records[i] = map[string]any{}
			}
		}
		*p = Payload{Kind: PayloadTabular, Records: records}
	default:
		*p = Payload{Kind: PayloadScalar, raw: append(json.RawMessage(nil), trimmed...)}
	}
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadForm:
		return json.Marshal(p.Form)
	case PayloadTabular:
		return json.Marshal(p.Records)
	case PayloadScalar:
		return p.raw, nil
	default:
		return []byte("null"), nil
	}
}

// IsEmpty matches the validation rule: absent payload or empty record list.
func (p Payload) IsEmpty() bool {
	return p.Kind == PayloadEmpty || (p.Kind == PayloadTabular && len(p.Records) == 0)
}

// RecordCount is the number of data records carried by the payload.
func (p Payload) RecordCount() int {
	if p.Kind == PayloadTabular {
		return len(p.Records)
	}
	return 1
}

// FieldCount is the number of fields in the first record (or the form record).
func (p Payload) FieldCount() int {
	switch p.Kind {
	case PayloadForm:
		return len(p.Form)
	case PayloadTabular:
		if len(p.Records) > 0 {
			return len(p.Records[0])
		}
	}
	return 0
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type Metadata struct {
	Location    *GeoPoint  `json:"location,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Equipment   string     `json:"equipment,omitempty"`
	Methodology string     `json:"methodology,omitempty"`
	Units       string     `json:"units,omitempty"`
	SampleSize  int        `json:"sample_size,omitempty"`
}

type FileRef struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

type Submission struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Category         Category          `json:"category"`
	DataType         DataType          `json:"data_type"`
	SubmittedBy      string            `json:"submitted_by"`
	SubmitterType    SubmitterType     `json:"submitter_type"`
	Data             Payload           `json:"data"`
	Metadata         Metadata          `json:"metadata"`
	FileRefs         []FileRef         `json:"file_refs,omitempty"`
	Status           SubmissionStatus  `json:"status"`
	ReviewedBy       *string           `json:"reviewed_by,omitempty"`
	ReviewComments   string            `json:"review_comments,omitempty"`
	ReviewDate       *time.Time        `json:"review_date,omitempty"`
	ValidationStatus ValidationStatus  `json:"validation_status"`
	ValidationIssues []ValidationIssue `json:"validation_errors"`
	Tags             []string          `json:"tags"`
	IsPublic         bool              `json:"is_public"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}
