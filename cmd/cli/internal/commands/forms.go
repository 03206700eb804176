package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateForm checks the validate tags on form and reports every failing field.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}

	return fmt.Errorf("invalid input:\n  %s", strings.Join(msgs, "\n  "))
}

// loadForm reads a YAML or JSON file into a typed form and validates it.
func loadForm[T any](path string) (T, error) {
	var form T

	data, err := os.ReadFile(path)
	if err != nil {
		return form, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &form); err != nil {
		return form, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := validateForm(form); err != nil {
		return form, err
	}

	return form, nil
}

// loadDocument reads a YAML or JSON file the relay forwards without a local schema.
func loadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	return doc, nil
}
