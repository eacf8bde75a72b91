package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cyra/alogparse/internal/format"
	"github.com/cyra/alogparse/internal/parser"
	"github.com/spf13/cobra"
)

func newFormatsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the named format presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			for _, name := range parser.Presets() {
				f, err := parser.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, f)
			}
			return tw.Flush()
		},
	}
}

func newCompileCmd(f *flags, stdout io.Writer) *cobra.Command {
	var lines []string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Show the pattern and fields a format compiles to",
		Long: `compile prints the anchored regular expression and the ordered field list
for the format selected by --format, --preset or the config file. Each
--test line is parsed and printed as JSON, or reported as unmatched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, f, nil)
			if err != nil {
				return err
			}
			src, err := cfg.FormatString()
			if err != nil {
				return err
			}
			cf, err := format.Compile(src)
			if err != nil {
				return err
			}

			fmt.Fprintf(stdout, "format:  %s\npattern: %s\nfields:\n", cf.Source(), cf.Pattern())
			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			for i, fd := range cf.Fields() {
				fmt.Fprintf(tw, "  %d\t%s\t%s\n", i+1, fd.Name, fd.Directive.Token)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			p := parser.New(cf, parser.WithUserAgentField(cfg.Format.UserAgentField))
			for _, line := range lines {
				rec, err := p.Parse(line)
				if err != nil {
					fmt.Fprintf(stdout, "unmatched: %s\n", line)
					continue
				}
				var buf bytes.Buffer
				enc := json.NewEncoder(&buf)
				enc.SetEscapeHTML(false)
				if err := enc.Encode(rec); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "matched: %s", buf.String())
				for _, fe := range rec.Errors {
					fmt.Fprintf(stdout, "  field error: %v\n", fe)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&lines, "test", nil, "parse this line with the format (repeatable)")
	return cmd
}
