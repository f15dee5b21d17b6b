package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	apperrors "github.com/ZanzyTHEbar/modelscore/internal/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Format is a document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf guesses the format from a file name
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses and validates a document
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, apperrors.NewValidationError("invalid YAML document", err.Error())
		}
	case FormatJSON, "":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&doc); err != nil {
			return nil, apperrors.NewValidationError("invalid JSON document", err.Error())
		}
	default:
		return nil, apperrors.NewUnsupportedError("document format", format)
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode renders a document in the given format
func Encode(doc *Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Validate checks struct constraints and that the body matching Kind is present
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			details := make(map[string]string, len(fieldErrors))
			for _, fe := range fieldErrors {
				details[fe.Namespace()] = fmt.Sprintf("failed on '%s'", fe.Tag())
			}
			return apperrors.NewValidationErrorWithMap(details)
		}
		return apperrors.NewValidationError("invalid document", err.Error())
	}

	if !doc.hasBody() {
		return apperrors.NewValidationErrorWithMap(map[string]string{
			string(doc.Kind): "model body is missing",
		})
	}

	seen := make(map[string]bool, len(doc.DataFields))
	for _, def := range doc.DataFields {
		if seen[def.Name] {
			return apperrors.NewValidationErrorWithMap(map[string]string{
				def.Name: "field declared twice",
			})
		}
		seen[def.Name] = true
	}

	return nil
}

func (d *Document) hasBody() bool {
	switch d.Kind {
	case KindRegression:
		return d.Regression != nil
	case KindRuleSet:
		return d.RuleSet != nil
	case KindNaiveBayes:
		return d.NaiveBayes != nil
	case KindScorecard:
		return d.Scorecard != nil
	case KindClustering:
		return d.Clustering != nil
	case KindTimeSeries:
		return d.TimeSeries != nil
	default:
		return false
	}
}
