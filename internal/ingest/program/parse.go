// Package program imports training program documents.
package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/trainplan/internal/ingest"
	"github.com/claude/trainplan/internal/models"
	"github.com/claude/trainplan/internal/prescription"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

// FieldError is a single problem at a document path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidFormatError reports a program document that cannot be imported.
type InvalidFormatError struct {
	Errors []FieldError
}

func (e *InvalidFormatError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid program format:")
	for i, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %s: %s", i+1, fe.Field, fe.Message))
	}
	return sb.String()
}

var (
	schemaLoader = gojsonschema.NewStringLoader(programSchema)
	validate     = ingest.NewValidator()
)

// Parse validates a program document and decodes it. Lint warnings are
// returned alongside the program; any lint error rejects the document.
func Parse(data []byte) (*models.TrainingProgram, []prescription.Issue, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, &InvalidFormatError{Errors: []FieldError{{Field: "(root)", Message: "malformed JSON: " + err.Error()}}}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("validating program schema: %w", err)
	}
	if !result.Valid() {
		ife := &InvalidFormatError{Errors: make([]FieldError, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			ife.Errors = append(ife.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return nil, nil, ife
	}

	var program models.TrainingProgram
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, nil, &InvalidFormatError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}

	if err := validate.Struct(&program); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, nil, fmt.Errorf("validating program: %w", err)
		}
		ife := &InvalidFormatError{Errors: make([]FieldError, 0, len(ve))}
		for _, fe := range ve {
			ife.Errors = append(ife.Errors, FieldError{
				Field:   strings.TrimPrefix(fe.Namespace(), "TrainingProgram."),
				Message: fmt.Sprintf("failed %q constraint (value %v)", fe.ActualTag(), fe.Value()),
			})
		}
		return nil, nil, ife
	}

	issues := prescription.Lint(&program)
	var warnings []prescription.Issue
	var lintErrs []FieldError
	for _, issue := range issues {
		if issue.Severity == prescription.SeverityError {
			lintErrs = append(lintErrs, FieldError{Field: issue.Path, Message: issue.Message})
			continue
		}
		warnings = append(warnings, issue)
	}
	if len(lintErrs) > 0 {
		return nil, nil, &InvalidFormatError{Errors: lintErrs}
	}

	return &program, warnings, nil
}
