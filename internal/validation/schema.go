package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"pulse-tracker-report/internal/models"
)

// ReportSchemaJSON is the JSON schema every generated report must satisfy.
// The same document is handed to the generation engine as its structured
// output schema, so engine output and validation cannot drift apart.
//
//go:embed report_schema.json
var ReportSchemaJSON []byte

// ValidateReport validates a report JSON string against the report schema.
func ValidateReport(reportJSON string) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(ReportSchemaJSON))
	if err != nil {
		return fmt.Errorf("failed to load report schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(reportJSON))
	if err != nil {
		return fmt.Errorf("failed to validate report: %w", err)
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}
		return fmt.Errorf("report does not match schema: %v", errors)
	}

	return nil
}

// ValidateAndParseReport validates a report JSON string and unmarshals it.
func ValidateAndParseReport(reportJSON string) (*models.Report, error) {
	if err := ValidateReport(reportJSON); err != nil {
		return nil, err
	}

	var report models.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}

	return &report, nil
}
