package validation

import (
	"fmt"

	"github.com/scidatahub/platform/internal/models"
)

// Result is the outcome of a structural payload check. A result is valid as
// long as no issue has error severity; warnings and infos are advisory.
type Result struct {
	IsValid bool                     `json:"is_valid"`
	Errors  []models.ValidationIssue `json:"errors"`
}

// Status maps a validation result onto the submission's validation status.
func (r Result) Status() models.ValidationStatus {
	if r.IsValid {
		return models.ValidationValid
	}
	return models.ValidationNeedsReview
}

// ValidateSubmissionData checks the payload's shape against its declared data
// type. Form data must be a single record; uploaded data must be a list of
// records whose rows all carry the same number of columns.
func ValidateSubmissionData(data models.Payload, dataType models.DataType) Result {
	var issues []models.ValidationIssue

	if data.IsEmpty() {
		issues = append(issues, models.ValidationIssue{
			Field:    "data",
			Message:  "Data cannot be empty",
			Severity: models.SeverityError,
		})
		return Result{IsValid: false, Errors: issues}
	}

	switch dataType {
	case models.DataTypeForm:
		if data.Kind != models.PayloadForm {
			issues = append(issues, models.ValidationIssue{
				Field:    "data",
				Message:  "Form data must be an object",
				Severity: models.SeverityError,
			})
		}
	case models.DataTypeCSVUpload, models.DataTypeExcelUpload:
		if data.Kind != models.PayloadTabular {
			issues = append(issues, models.ValidationIssue{
				Field:    "data",
				Message:  "Uploaded data must be an array of records",
				Severity: models.SeverityError,
			})
		} else {
			want := len(data.Records[0])
			for i, row := range data.Records {
				if len(row) != want {
					issues = append(issues, models.ValidationIssue{
						Field:    fmt.Sprintf("data[%d]", i),
						Message:  fmt.Sprintf("Row %d has inconsistent number of columns", i+1),
						Severity: models.SeverityWarning,
					})
				}
			}
		}
	}

	return Result{IsValid: countErrors(issues) == 0, Errors: issues}
}

func countErrors(issues []models.ValidationIssue) int {
	n := 0
	for _, is := range issues {
		if is.Severity == models.SeverityError {
			n++
		}
	}
	return n
}
