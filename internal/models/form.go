// Package models defines the data structures for the bike price predictor.
package models

import (
	"strconv"
	"strings"
)

// Owner is the ownership history of the bike.
type Owner string

const (
	OwnerFirst      Owner = "First Owner"
	OwnerSecond     Owner = "Second Owner"
	OwnerThird      Owner = "Third Owner"
	OwnerFourthPlus Owner = "Fourth Owner Or More"
	OwnerUnknown    Owner = "Unknown"
)

// DefaultOwner is preselected on a fresh form.
const DefaultOwner = OwnerFirst

// ValidOwners returns all owner values in display order.
func ValidOwners() []Owner {
	return []Owner{
		OwnerFirst,
		OwnerSecond,
		OwnerThird,
		OwnerFourthPlus,
		OwnerUnknown,
	}
}

// IsValid checks if the owner value is one of the known options.
func (o Owner) IsValid() bool {
	for _, valid := range ValidOwners() {
		if o == valid {
			return true
		}
	}
	return false
}

// Form field names, as used by the HTML form and the JSON API.
const (
	FieldBrand      = "brand"
	FieldModel      = "model"
	FieldLocation   = "location"
	FieldYear       = "year"
	FieldKilometers = "kilometers"
	FieldPower      = "power"
	FieldOwner      = "owner"
)

// RequiredFields must be non-empty before a submission goes out. Owner is
// absent because it always carries a value.
var RequiredFields = []string{
	FieldBrand,
	FieldModel,
	FieldLocation,
	FieldYear,
	FieldKilometers,
	FieldPower,
}

// FieldKind tells renderers which control to draw.
type FieldKind string

const (
	FieldKindSelect FieldKind = "select"
	FieldKindNumber FieldKind = "number"
)

// FieldSpec describes one form control.
type FieldSpec struct {
	Name        string
	Label       string
	Kind        FieldKind
	Required    bool
	Placeholder string
}

// FormFields lists the form controls in display order.
func FormFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldBrand, Label: "Brand", Kind: FieldKindSelect, Required: true, Placeholder: "Choose your brand"},
		{Name: FieldModel, Label: "Model", Kind: FieldKindSelect, Required: true, Placeholder: "Select model"},
		{Name: FieldLocation, Label: "Location", Kind: FieldKindSelect, Required: true, Placeholder: "Select location"},
		{Name: FieldYear, Label: "Year", Kind: FieldKindNumber, Required: true, Placeholder: "2020"},
		{Name: FieldPower, Label: "Power (CC)", Kind: FieldKindNumber, Required: true, Placeholder: "150"},
		{Name: FieldKilometers, Label: "Kilometers Driven", Kind: FieldKindNumber, Required: true, Placeholder: "25000"},
		{Name: FieldOwner, Label: "Owner Type", Kind: FieldKindSelect, Required: true},
	}
}

// FormState holds the raw values of the form. Code fields carry the
// string-encoded integer code of the selected option, or "".
type FormState struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Location   string `json:"location"`
	Year       string `json:"year"`
	Kilometers string `json:"kilometers"`
	Power      string `json:"power"`
	Owner      Owner  `json:"owner"`
}

// NewFormState returns an empty form with the default owner.
func NewFormState() FormState {
	return FormState{Owner: DefaultOwner}
}

// Get returns the value of the named field.
func (f FormState) Get(name string) (string, error) {
	switch name {
	case FieldBrand:
		return f.Brand, nil
	case FieldModel:
		return f.Model, nil
	case FieldLocation:
		return f.Location, nil
	case FieldYear:
		return f.Year, nil
	case FieldKilometers:
		return f.Kilometers, nil
	case FieldPower:
		return f.Power, nil
	case FieldOwner:
		return string(f.Owner), nil
	default:
		return "", ErrUnknownField
	}
}

// SetField sets the named field. Changing the brand always clears the model,
// since a model code only makes sense under the brand it was picked for.
func (f *FormState) SetField(name, value string) error {
	switch name {
	case FieldBrand:
		f.Brand = value
		f.Model = ""
	case FieldModel:
		f.Model = value
	case FieldLocation:
		f.Location = value
	case FieldYear:
		f.Year = value
	case FieldKilometers:
		f.Kilometers = value
	case FieldPower:
		f.Power = value
	case FieldOwner:
		owner := Owner(value)
		if !owner.IsValid() {
			return ErrInvalidOwner
		}
		f.Owner = owner
	default:
		return ErrUnknownField
	}
	return nil
}

// MissingFields lists the required fields that are empty.
func (f FormState) MissingFields() []string {
	var missing []string
	for _, name := range RequiredFields {
		if v, _ := f.Get(name); strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Validate checks the form is complete and its numeric values parse.
func (f FormState) Validate() error {
	if missing := f.MissingFields(); len(missing) > 0 {
		return &ValidationError{Fields: missing, Err: ErrMissingFields}
	}
	_, err := f.ToPredictionRequest()
	return err
}

// ToPredictionRequest converts the form into the prediction service payload.
func (f FormState) ToPredictionRequest() (PredictionRequest, error) {
	if missing := f.MissingFields(); len(missing) > 0 {
		return PredictionRequest{}, &ValidationError{Fields: missing, Err: ErrMissingFields}
	}

	owner := f.Owner
	if owner == "" {
		owner = DefaultOwner
	}
	if !owner.IsValid() {
		return PredictionRequest{}, &ValidationError{Fields: []string{FieldOwner}, Err: ErrInvalidOwner}
	}

	var invalid []string
	parse := func(name, raw string) int {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			invalid = append(invalid, name)
		}
		return n
	}

	req := PredictionRequest{
		Brand:      parse(FieldBrand, f.Brand),
		Model:      parse(FieldModel, f.Model),
		Location:   parse(FieldLocation, f.Location),
		Year:       parse(FieldYear, f.Year),
		Kilometers: parse(FieldKilometers, f.Kilometers),
		Power:      parse(FieldPower, f.Power),
	}
	if len(invalid) > 0 {
		return PredictionRequest{}, &ValidationError{Fields: invalid, Err: ErrInvalidNumber}
	}

	req.OwnerSecond = indicator(owner == OwnerSecond)
	req.OwnerThird = indicator(owner == OwnerThird)
	req.OwnerFourthPlus = indicator(owner == OwnerFourthPlus)
	req.OwnerUnknown = indicator(owner == OwnerUnknown)

	return req, nil
}

func indicator(set bool) int {
	if set {
		return 1
	}
	return 0
}
