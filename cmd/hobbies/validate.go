package main

import (
	"errors"
	"fmt"

	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/spf13/cobra"
)

// errInvalidRecord is returned after a rejected record has been printed.
var errInvalidRecord = errors.New("record is invalid")

func newValidateCmd(a *app) *cobra.Command {
	var schemaPath, recordArg string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a record against a schema document",
		Long: `Loads a JSON or YAML schema document and validates one record against it
without touching the database. The record is inline JSON or @file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadSchemaFile(schemaPath)
			if err != nil {
				return err
			}
			record, err := readDocument(recordArg)
			if err != nil {
				return err
			}
			opts, err := a.validatorOptions()
			if err != nil {
				return err
			}

			result := schema.NewValidator(s, opts...).Validate(record)
			a.metrics.ObserveValidation(s.Name, result)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Valid {
				return fmt.Errorf("%w: %d issue(s)", errInvalidRecord, len(result.Issues))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema document (JSON or YAML)")
	cmd.Flags().StringVar(&recordArg, "record", "{}", "Record as inline JSON or @file")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
