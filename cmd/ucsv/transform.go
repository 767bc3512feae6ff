package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/transform"
)

func newMergeCmd(a *app) *cobra.Command {
	var allKeys bool

	cmd := &cobra.Command{
		Use:   "merge DEST SRC...",
		Short: "Concatenate files into one",
		Long: `Read every SRC and write their records to DEST in order. By default only
the fields present in every record are kept; --all keeps every field and
leaves missing values empty.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var selector transform.KeySelector
			if allKeys {
				selector = transform.AllKeys
			}
			if err := transform.Merge(cmd.Context(), a.files, args[1:], args[0], selector); err != nil {
				return err
			}
			a.logger.Info("merged", "dest", args[0], "sources", len(args)-1)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allKeys, "all", false, "keep the union of field names instead of the intersection")
	return cmd
}

func newDedupeCmd(a *app) *cobra.Command {
	var keys []string

	cmd := &cobra.Command{
		Use:   "dedupe SRC DEST",
		Short: "Drop records whose key repeats an earlier record",
		Long: `Copy SRC to DEST keeping the first record for each distinct value of the
--key fields. With no --key every field is part of the key.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := transform.WholeRecord
			if len(keys) > 0 {
				key = transform.KeyOf(keys...)
			}
			return transform.Dedupe(cmd.Context(), a.files, args[0], args[1], key)
		},
	}

	cmd.Flags().StringSliceVar(&keys, "key", nil, "fields forming the identity key")
	return cmd
}

func newSlimCmd(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "slim SRC DEST",
		Short: "Keep selected fields and flatten line breaks",
		Long: `Copy the --fields of every SRC record to DEST in the given order. Line
breaks inside values are replaced by a literal \n so every record fits on
one line.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transform.Slim(cmd.Context(), a.files, args[0], args[1], fields)
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "fields to keep, in output order")
	cmd.MarkFlagRequired("fields")
	return cmd
}

func newGroupedCmd(a *app) *cobra.Command {
	var keys []string

	cmd := &cobra.Command{
		Use:   "grouped SRC DEST",
		Short: "Write one record per group with its stable fields",
		Long: `Group SRC records by the --key fields and write the first record of each
group, keeping only fields whose value is the same throughout every group.
The output shape may change in later versions.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return transform.Grouped(cmd.Context(), a.files, args[0], args[1], transform.KeyOf(keys...))
		},
	}

	cmd.Flags().StringSliceVar(&keys, "key", nil, "fields identifying a group")
	cmd.MarkFlagRequired("key")
	return cmd
}
