package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bike-predict/internal/models"
	"bike-predict/internal/prompt"
	"bike-predict/internal/utils"
)

func listMappings(cmd *cobra.Command, args []string) error {
	c, err := newController(cmd.Context())
	if err != nil {
		return err
	}
	catalog := c.Catalog()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderEntries("Brands", catalog.Brands()))
	fmt.Fprintln(out, renderEntries("Locations", append(catalog.Locations(),
		models.Entry{Name: models.LocationOtherLabel, Code: models.LocationOther})))
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	c, err := newController(cmd.Context())
	if err != nil {
		return err
	}

	code, err := resolve(predictFlags.brand, c.Catalog().Brands(), false)
	if err != nil {
		return fmt.Errorf("brand: %w", err)
	}
	if err := c.HandleFieldChange(models.FieldBrand, code); err != nil {
		return err
	}

	name, _ := c.Catalog().BrandName(atoi(code))
	fmt.Fprintln(cmd.OutOrStdout(), renderEntries(utils.TitleCase(name)+" models", c.AvailableModels()))
	return nil
}

func predict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := newController(ctx)
	if err != nil {
		return err
	}

	if predictFlags.interactive {
		if _, err := prompt.RunForm(ctx, prompt.NewSurveyDriver(), c); err != nil {
			if msg := c.State().Error; msg != "" {
				return fmt.Errorf("%s", msg)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderResult(c.State()))
		return nil
	}

	catalog := c.Catalog()
	brand, err := resolve(predictFlags.brand, catalog.Brands(), false)
	if err != nil {
		return fmt.Errorf("brand: %w", err)
	}
	if err := c.HandleFieldChange(models.FieldBrand, brand); err != nil {
		return err
	}

	model, err := resolve(predictFlags.model, c.AvailableModels(), false)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	location, err := resolve(predictFlags.location, catalog.Locations(), true)
	if err != nil {
		return fmt.Errorf("location: %w", err)
	}

	for name, value := range map[string]string{
		models.FieldModel:      model,
		models.FieldLocation:   location,
		models.FieldYear:       predictFlags.year,
		models.FieldKilometers: predictFlags.kilometers,
		models.FieldPower:      predictFlags.power,
		models.FieldOwner:      predictFlags.owner,
	} {
		if err := c.HandleFieldChange(name, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if _, err := c.Submit(ctx); err != nil {
		return fmt.Errorf("%s", c.State().Error)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderResult(c.State()))
	return nil
}

// resolve maps a name or code to a code string. An empty value stays empty
// so form validation can report it.
func resolve(value string, entries []models.Entry, allowOther bool) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if allowOther && strings.EqualFold(value, models.LocationOtherLabel) {
		return strconv.Itoa(models.LocationOther), nil
	}

	if code, err := strconv.Atoi(value); err == nil {
		if allowOther && code == models.LocationOther {
			return value, nil
		}
		for _, e := range entries {
			if e.Code == code {
				return value, nil
			}
		}
		return "", fmt.Errorf("unknown code %d", code)
	}

	for _, e := range entries {
		if strings.EqualFold(e.Name, value) {
			return strconv.Itoa(e.Code), nil
		}
	}
	return "", fmt.Errorf("unknown name %q", value)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
