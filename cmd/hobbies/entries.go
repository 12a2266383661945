package main

import (
	"fmt"

	"github.com/asaidimu/go-hobbies/core/persistence"
	"github.com/asaidimu/go-hobbies/core/schema"
	"github.com/spf13/cobra"
)

func newEntriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Manage entries",
	}

	var (
		in      persistence.EntryInput
		dataArg string
	)
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add an entry; its data must satisfy the fields of the hobby type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDocument(dataArg)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			in.Title = args[0]
			in.Data = data
			e, err := svc.CreateEntry(cmd.Context(), a.cfg.Owner, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
	add.Flags().StringVar(&in.HobbyTypeID, "type", "", "Hobby type id")
	add.Flags().StringVar(&in.Status, "status", "", "backlog, in_progress or done")
	add.Flags().StringSliceVar(&in.Tags, "tag", nil, "Tag id (repeatable)")
	add.Flags().StringVar(&dataArg, "data", "", "Data as inline JSON or @file")
	_ = add.MarkFlagRequired("type")

	var hobbyTypeID, viewID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List entries, optionally through a saved view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			var entries []*persistence.Entry
			if viewID != "" {
				entries, err = svc.ApplyView(cmd.Context(), a.cfg.Owner, viewID)
			} else {
				entries, err = svc.ListEntries(cmd.Context(), a.cfg.Owner, hobbyTypeID)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	list.Flags().StringVar(&hobbyTypeID, "type", "", "Only entries of this hobby type")
	list.Flags().StringVar(&viewID, "view", "", "Apply this saved view")

	var title, status, updateData string
	var tags []string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change an entry; the result is validated again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd persistence.EntryUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				upd.Title = &title
			}
			if flags.Changed("status") {
				upd.Status = &status
			}
			if flags.Changed("tag") {
				upd.Tags = &tags
			}
			if flags.Changed("data") {
				data, err := readDocument(updateData)
				if err != nil {
					return err
				}
				doc := schema.Document(data)
				upd.Data = &doc
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			e, err := svc.UpdateEntry(cmd.Context(), a.cfg.Owner, args[0], upd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
	update.Flags().StringVar(&title, "title", "", "New title")
	update.Flags().StringVar(&status, "status", "", "New status")
	update.Flags().StringSliceVar(&tags, "tag", nil, "Replace tags (repeatable)")
	update.Flags().StringVar(&updateData, "data", "", "Replace data with inline JSON or @file")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return svc.DeleteEntry(cmd.Context(), a.cfg.Owner, args[0])
		},
	}

	cmd.AddCommand(add, list, update, del)
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
	}

	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			t, err := svc.CreateTag(cmd.Context(), a.cfg.Owner, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			tags, err := svc.ListTags(cmd.Context(), a.cfg.Owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tags)
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newViewsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Manage saved views",
	}

	var (
		in         persistence.SavedViewInput
		filtersArg string
	)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Save a filter and sort over the entries of a hobby type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := readDocument(filtersArg)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			in.Name = args[0]
			in.Filters = filters
			v, err := svc.CreateView(cmd.Context(), a.cfg.Owner, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	add.Flags().StringVar(&in.HobbyTypeID, "type", "", "Hobby type id")
	add.Flags().StringVar(&filtersArg, "filters", "", `Filters as inline JSON or @file, e.g. {"rating":{"gte":8}}`)
	add.Flags().StringSliceVar(&in.Sort, "sort", nil, "Sort key, '-' prefix for descending (repeatable)")
	_ = add.MarkFlagRequired("type")

	var hobbyTypeID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved views of a hobby type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			views, err := svc.ListViews(cmd.Context(), a.cfg.Owner, hobbyTypeID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), views)
		},
	}
	list.Flags().StringVar(&hobbyTypeID, "type", "", "Hobby type id")
	_ = list.MarkFlagRequired("type")

	cmd.AddCommand(add, list)
	return cmd
}

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit HOBBY_TYPE_ID",
		Short: "Revalidate stored entries against the current fields",
		Long: `Stored entries are not revalidated when fields change. audit checks every
entry of a hobby type against its current fields and lists the ones that would
now be rejected. Nothing is modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			report, err := svc.Audit(cmd.Context(), a.cfg.Owner, args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d entries no longer match\n", len(report.Rejected), report.Checked)
			return nil
		},
	}
}
