package main

import (
	"fmt"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/spf13/cobra"
)

func newTypesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Manage hobby types",
	}

	var in persistence.HobbyTypeInput
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a hobby type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			in.Name = args[0]
			ht, err := svc.CreateHobbyType(cmd.Context(), a.cfg.Owner, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ht)
		},
	}
	create.Flags().StringVar(&in.Description, "description", "", "Description")
	create.Flags().StringVar(&in.Icon, "icon", "", "Icon")
	create.Flags().StringVar(&in.Color, "color", "", "Color")

	list := &cobra.Command{
		Use:   "list",
		Short: "List hobby types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			types, err := svc.ListHobbyTypes(cmd.Context(), a.cfg.Owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), types)
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a hobby type with its fields, entries and views",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteHobbyType(cmd.Context(), a.cfg.Owner, args[0])
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func newFieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage the fields of a hobby type",
	}

	var (
		def        schema.FieldDefinition
		fieldType  string
		optionsArg string
	)
	add := &cobra.Command{
		Use:   "add HOBBY_TYPE_ID",
		Short: "Add a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDocument(optionsArg)
			if err != nil {
				return err
			}
			def.Type = schema.FieldType(fieldType)
			def.Options, err = schema.DecodeOptions(def.Type, raw)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			f, err := svc.AddField(cmd.Context(), a.cfg.Owner, args[0], def)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), f)
		},
	}
	add.Flags().StringVar(&def.Key, "key", "", "Field key (snake_case)")
	add.Flags().StringVar(&def.Label, "label", "", "Display label (defaults to the key)")
	add.Flags().StringVar(&def.HelpText, "help-text", "", "Help text")
	add.Flags().StringVar(&fieldType, "type", string(schema.FieldTypeText), "Field type")
	add.Flags().BoolVar(&def.Required, "required", false, "Require a value")
	add.Flags().IntVar(&def.Order, "order", 0, "Display order")
	add.Flags().StringVar(&optionsArg, "options", "", "Type options as inline JSON or @file")
	_ = add.MarkFlagRequired("key")

	list := &cobra.Command{
		Use:   "list HOBBY_TYPE_ID",
		Short: "List fields in schema order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Schema(cmd.Context(), a.cfg.Owner, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}

	remove := &cobra.Command{
		Use:   "remove HOBBY_TYPE_ID KEY",
		Short: "Remove a field; stored values are kept",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.RemoveField(cmd.Context(), a.cfg.Owner, args[0], args[1])
		},
	}

	importCmd := &cobra.Command{
		Use:   "import HOBBY_TYPE_ID FILE",
		Short: "Add every field of a JSON or YAML schema document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.LoadSchemaFile(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			fields, err := svc.ImportSchema(cmd.Context(), a.cfg.Owner, args[0], s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d field(s)\n", len(fields))
			return nil
		},
	}

	cmd.AddCommand(add, list, remove, importCmd)
	return cmd
}
