package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/core"
)

func newConvertCmd(a *app) *cobra.Command {
	var flags struct {
		from, to string
		fields   []string
		append   bool
		noHeader bool
	}

	cmd := &cobra.Command{
		Use:   "convert SRC DEST",
		Short: "Rewrite a file in another dialect",
		Long: `Read SRC in the dialect bound to its extension and write every record to
DEST in the dialect bound to DEST's extension. --from and --to override
either side with a built-in dialect name or a bound extension.

Examples:
  ucsv convert orders.csv orders.tsv
  ucsv convert - out.csv --from mysql-tsv < dump.tsv
  ucsv convert in.txt - --fields id,name`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, dest := args[0], args[1]

			var inOpts []core.Option
			if flags.from != "" {
				d, err := a.registry.Named(flags.from)
				if err != nil {
					return err
				}
				inOpts = append(inOpts, core.Dialect(d))
			}
			outOpts := []core.Option{core.Append(flags.append), core.WriteHeader(!flags.noHeader)}
			if flags.to != "" {
				d, err := a.registry.Named(flags.to)
				if err != nil {
					return err
				}
				outOpts = append(outOpts, core.Dialect(d))
			}
			if len(flags.fields) > 0 {
				outOpts = append(outOpts, core.FieldNames(flags.fields...))
			}

			n, err := a.files.Pipe(ctx, a.files.OpenRecords(ctx, src, inOpts...), dest, nil, outOpts...)
			if err != nil {
				return err
			}
			a.logger.Info("converted", "src", src, "dest", dest, "records", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.from, "from", "", "dialect of SRC (built-in name or extension)")
	cmd.Flags().StringVar(&flags.to, "to", "", "dialect of DEST (built-in name or extension)")
	cmd.Flags().StringSliceVar(&flags.fields, "fields", nil, "output field order; other fields are dropped")
	cmd.Flags().BoolVar(&flags.append, "append", false, "append to DEST without a header")
	cmd.Flags().BoolVar(&flags.noHeader, "no-header", false, "do not write a header line")
	return cmd
}
