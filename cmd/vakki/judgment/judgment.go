// Package judgmentcmder provides the judgment command, which extracts
// metadata from judgment text locally.
package judgmentcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vakki/pkg/cliui"
	"github.com/papercomputeco/vakki/pkg/judgment"
)

type judgmentCommander struct {
	path     string
	jsonOut  bool
	metadata judgment.Metadata
}

const judgmentLongDesc string = `Extract metadata from the text of a judgment.

Reads a plain text judgment (as exported from a judgment PDF) and prints the
court, judgment date and year, case name, bench, case numbers and cited
reports. Fields missing from the text are reported as "Not Found".
Use "-" to read the text from stdin.

Examples:
  vakki judgment judgments/1999_kartar_singh.txt
  pdftotext judgment.pdf - | vakki judgment - --json`

const judgmentShortDesc string = "Extract metadata from a judgment"

func NewJudgmentCmd() *cobra.Command {
	cmder := &judgmentCommander{}

	cmd := &cobra.Command{
		Use:   "judgment <file | ->",
		Short: judgmentShortDesc,
		Long:  judgmentLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.path = args[0]
			return cmder.run(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print metadata as JSON")

	return cmd
}

func (c *judgmentCommander) run(in io.Reader, out io.Writer) error {
	var (
		text []byte
		err  error
	)
	if c.path == "-" {
		text, err = io.ReadAll(in)
	} else {
		text, err = os.ReadFile(c.path)
	}
	if err != nil {
		return fmt.Errorf("reading judgment: %w", err)
	}

	c.metadata = judgment.Extract(string(text))

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(c.metadata)
	}

	printMetadata(out, c.metadata)
	return nil
}

const labelWidth = len("Case numbers:")

func printMetadata(out io.Writer, m judgment.Metadata) {
	fields := []struct {
		key   string
		value string
	}{
		{"Court", m.CourtName},
		{"Date", m.JudgmentDate},
		{"Year", m.JudgmentYear},
		{"Case", m.CaseName},
		{"Bench", m.Judges},
		{"Case numbers", list(m.CaseNumbers)},
		{"Citations", list(m.Citations)},
	}

	fmt.Fprintln(out)
	for _, f := range fields {
		value := cliui.ValueStyle.Render(f.value)
		if f.value == judgment.NotFound {
			value = cliui.DimStyle.Render(f.value)
		}
		label := f.key + ":"
		fmt.Fprintf(out, "  %s%s %s\n", cliui.KeyStyle.Render(label), strings.Repeat(" ", labelWidth-len(label)), value)
	}
	fmt.Fprintln(out)
}

func list(items []string) string {
	if len(items) == 0 {
		return judgment.NotFound
	}
	return strings.Join(items, "; ")
}
