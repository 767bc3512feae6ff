package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ucsv/internal/dialect"
)

func newDialectsCmd(a *app) *cobra.Command {
	var asYAML, builtin bool

	cmd := &cobra.Command{
		Use:   "dialects",
		Short: "List extension bindings",
		Long: `Print the extension bindings in effect, including any loaded from
UCSV_DIALECTS_FILE. --yaml prints them as a dialect file that can be edited
and loaded back. --builtin lists the built-in dialects by name instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindings := a.registry.Snapshot()
			if builtin {
				bindings = make(map[string]dialect.Dialect)
				for _, name := range dialect.BuiltinNames() {
					bindings[name], _ = dialect.Builtin(name)
				}
			}

			out := cmd.OutOrStdout()
			if asYAML {
				data, err := dialect.MarshalFile(bindings)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tDIALECT\tDELIMITER\tQUOTING\tESCAPE\tTERMINATOR\tENCODING")
			for _, key := range slices.Sorted(maps.Keys(bindings)) {
				d := bindings[key]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					key, d.Name, showChar(d.Delimiter), d.Quoting, showChar(d.EscapeChar),
					strconv.Quote(d.LineTerminator), d.Encoding)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as a dialect file")
	cmd.Flags().BoolVar(&builtin, "builtin", false, "list built-in dialects instead of bindings")
	return cmd
}

func showChar(r rune) string {
	switch r {
	case 0:
		return "-"
	case '\t':
		return "tab"
	case ' ':
		return "space"
	}
	return string(r)
}
