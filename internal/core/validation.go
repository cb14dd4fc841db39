package core

// validation.go implements the field validator used for manual entry.
//
// Rules are an explicit, ordered table of (field, label, constraint) entries
// evaluated independently, so every problem in a form is reported at once
// rather than only the first one. Errors are advisory strings that callers
// display verbatim; CheckFields exposes the same errors with their kind.

import (
	"fmt"
	"strings"
)

// Form field names, as used in FormInput.Values and the JSON API.
const (
	FieldName               = "name"
	FieldOrbitalPeriod      = "orbitalPeriod"
	FieldTransitDepth       = "transitDepth"
	FieldTransitDuration    = "transitDuration"
	FieldSignalToNoiseRatio = "signalToNoiseRatio"
	FieldStellarRadius      = "stellarRadius"
	FieldStellarTemperature = "stellarTemperature"
	FieldStellarMagnitude   = "stellarMagnitude"
	FieldNotes              = "notes"
)

// fieldConstraint is the post-parse check applied to a field.
type fieldConstraint int

const (
	constraintRequiredText fieldConstraint = iota
	constraintNonNegative
	constraintAnyReal
)

// fieldRule ties a field to its display label and constraint.
type fieldRule struct {
	Field      string
	Label      string
	Constraint fieldConstraint
}

// fieldRules is evaluated in order; the order of returned errors follows it.
var fieldRules = []fieldRule{
	{Field: FieldName, Label: "Name", Constraint: constraintRequiredText},
	{Field: FieldOrbitalPeriod, Label: "Orbital Period", Constraint: constraintNonNegative},
	{Field: FieldTransitDepth, Label: "Transit Depth", Constraint: constraintNonNegative},
	{Field: FieldTransitDuration, Label: "Transit Duration", Constraint: constraintNonNegative},
	{Field: FieldSignalToNoiseRatio, Label: "Signal-to-Noise Ratio", Constraint: constraintNonNegative},
	{Field: FieldStellarRadius, Label: "Stellar Radius", Constraint: constraintNonNegative},
	{Field: FieldStellarTemperature, Label: "Stellar Temperature", Constraint: constraintNonNegative},
	{Field: FieldStellarMagnitude, Label: "Stellar Magnitude", Constraint: constraintAnyReal},
}

// ValidationError is a single failed field check.
type ValidationError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors is the full set of problems found in one form.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the human-readable messages in rule order.
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Message
	}
	return msgs
}

// CheckFields validates a field name -> raw value mapping and returns every
// failed check. Missing keys are treated as empty values.
func CheckFields(values map[string]string) ValidationErrors {
	var errs ValidationErrors

	for _, rule := range fieldRules {
		raw := values[rule.Field]

		switch rule.Constraint {
		case constraintRequiredText:
			if strings.TrimSpace(raw) == "" {
				errs = append(errs, ValidationError{
					Field:   rule.Field,
					Kind:    KindRequiredFieldMissing,
					Message: fmt.Sprintf("%s is required", rule.Label),
				})
			}

		case constraintNonNegative, constraintAnyReal:
			v, ok := ParseReal(raw)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   rule.Field,
					Kind:    KindNumericParseFailure,
					Message: fmt.Sprintf("%s must be a valid number", rule.Label),
				})
				continue
			}
			if rule.Constraint == constraintNonNegative && v < 0 {
				errs = append(errs, ValidationError{
					Field:   rule.Field,
					Kind:    KindBelowMinimum,
					Message: fmt.Sprintf("%s must be greater than 0", rule.Label),
				})
			}
		}
	}

	return errs
}

// ValidateFields returns the error messages for a field mapping.
// An empty slice means the input is valid.
func ValidateFields(values map[string]string) []string {
	return CheckFields(values).Messages()
}

// Validate checks a form and returns nil when it is valid.
func (f FormInput) Validate() error {
	if errs := CheckFields(f.Values()); len(errs) > 0 {
		return errs
	}
	return nil
}

// validateObservation checks the record invariants of an already-built
// observation. Used for whole-record replacement and for imported rows.
func validateObservation(o Observation) error {
	return FormFromObservation(o).Validate()
}
