package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bike-predict/internal/form"
	"bike-predict/internal/models"
	"bike-predict/internal/utils"
)

// RunForm walks the user through every field of c and submits it. The
// controller keeps its state afterwards, so callers can render c.State().
func RunForm(ctx context.Context, d Driver, c *form.Controller) (float64, error) {
	if c.Catalog() == nil {
		if err := c.LoadMappings(ctx); err != nil {
			return 0, err
		}
	}
	catalog := c.Catalog()

	specs := make(map[string]models.FieldSpec)
	for _, f := range models.FormFields() {
		specs[f.Name] = f
	}

	brand, err := selectEntry(ctx, d, specs[models.FieldBrand], catalog.Brands(), false)
	if err != nil {
		return 0, err
	}
	if err := c.HandleFieldChange(models.FieldBrand, brand); err != nil {
		return 0, err
	}

	available := c.AvailableModels()
	if len(available) == 0 {
		name, _ := catalog.BrandName(mustAtoi(brand))
		return 0, fmt.Errorf("%w %s", ErrNoModels, utils.TitleCase(name))
	}
	model, err := selectEntry(ctx, d, specs[models.FieldModel], available, false)
	if err != nil {
		return 0, err
	}
	if err := c.HandleFieldChange(models.FieldModel, model); err != nil {
		return 0, err
	}

	location, err := selectEntry(ctx, d, specs[models.FieldLocation], catalog.Locations(), true)
	if err != nil {
		return 0, err
	}
	if err := c.HandleFieldChange(models.FieldLocation, location); err != nil {
		return 0, err
	}

	for _, name := range []string{models.FieldYear, models.FieldPower, models.FieldKilometers} {
		spec := specs[name]
		value, err := d.Input(ctx, InputConfig{
			Message:   spec.Label,
			Help:      "e.g. " + spec.Placeholder,
			Validator: wholeNumber,
		})
		if err != nil {
			return 0, err
		}
		if err := c.HandleFieldChange(name, strings.TrimSpace(value)); err != nil {
			return 0, err
		}
	}

	owners := models.ValidOwners()
	options := make([]string, len(owners))
	defaultIndex := 0
	for i, o := range owners {
		options[i] = string(o)
		if o == models.DefaultOwner {
			defaultIndex = i
		}
	}
	idx, err := d.Select(ctx, SelectConfig{
		Message:      specs[models.FieldOwner].Label,
		Options:      options,
		DefaultIndex: defaultIndex,
	})
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(owners) {
		return 0, models.ErrInvalidOwner
	}
	if err := c.HandleFieldChange(models.FieldOwner, options[idx]); err != nil {
		return 0, err
	}

	if err := d.Info(ctx, "Analyzing..."); err != nil {
		return 0, err
	}
	return c.Submit(ctx)
}

// selectEntry asks for one entry and returns its code as a string.
func selectEntry(ctx context.Context, d Driver, spec models.FieldSpec, entries []models.Entry, withOther bool) (string, error) {
	options := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		label := utils.Sanitize(e.Name)
		// Locations read as the service spells them
		if !withOther {
			label = utils.TitleCase(label)
		}
		options = append(options, label)
	}
	if withOther {
		options = append(options, models.LocationOtherLabel)
	}
	if len(options) == 0 {
		return "", fmt.Errorf("no options for %s", strings.ToLower(spec.Label))
	}

	idx, err := d.Select(ctx, SelectConfig{
		Message:      spec.Placeholder,
		Options:      options,
		DefaultIndex: -1,
		PageSize:     12,
	})
	if err != nil {
		return "", err
	}

	switch {
	case idx >= 0 && idx < len(entries):
		return strconv.Itoa(entries[idx].Code), nil
	case withOther && idx == len(entries):
		return strconv.Itoa(models.LocationOther), nil
	default:
		return "", errors.New("selection out of range")
	}
}

func wholeNumber(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("this field is required")
	}
	if _, err := strconv.Atoi(s); err != nil {
		return models.ErrInvalidNumber
	}
	return nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
