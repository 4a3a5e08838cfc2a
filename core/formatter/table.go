package formatter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cesdm/modelkit/core/exchange"
	"github.com/cesdm/modelkit/core/schema"
	"github.com/cesdm/modelkit/core/validation"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatReport renders findings as one row per diagnostic, followed by
// a count line. A valid result prints a single confirmation line.
func (f *TableFormatter) FormatReport(w io.Writer, res validation.Result, opts FormatOptions) error {
	if res.Valid {
		fmt.Fprintln(w, "Model is valid.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "CLASS\tENTITY\tFIELD\tMESSAGE")
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			d.Class, d.EntityID, dash(d.Field), truncate(d.Message, opts.MaxWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d finding(s).\n", len(res.Diagnostics))
	return nil
}

// FormatSummary renders an import summary as key-value lines plus an
// unknown-field table when lenient imports skipped anything.
func (f *TableFormatter) FormatSummary(w io.Writer, sum exchange.Summary, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Entities created:\t%d\n", sum.CreatedEntities)
	fmt.Fprintf(tw, "Attributes set:\t%d\n", sum.SetAttributes)
	fmt.Fprintf(tw, "Relations set:\t%d\n", sum.SetRelations)
	for _, class := range sortedClasses(sum.PerClassRows) {
		fmt.Fprintf(tw, "Rows for %s:\t%d\n", class, sum.PerClassRows[class])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(sum.Unknowns) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\nSkipped %d unknown field(s):\n", len(sum.Unknowns))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "CLASS\tENTITY\tFIELD\tREASON\tLINE")
	}
	for _, u := range sum.Unknowns {
		line := "-"
		if u.Line > 0 {
			line = fmt.Sprintf("%d", u.Line)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			dash(u.Class), dash(u.EntityID), dash(u.Field), u.Reason, line)
	}
	return tw.Flush()
}

// FormatClasses renders one row per class.
func (f *TableFormatter) FormatClasses(w io.Writer, classes []schema.ClassSummary, opts FormatOptions) error {
	if len(classes) == 0 {
		fmt.Fprintln(w, "No classes defined.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "CLASS\tPARENTS\tABSTRACT\tATTRIBUTES\tRELATIONS")
	}
	for _, c := range classes {
		abstract := "no"
		if c.Abstract {
			abstract = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			dash(strings.Join(c.Parents, ", ")),
			abstract,
			truncate(dash(strings.Join(c.Attributes, ", ")), opts.MaxWidth),
			truncate(dash(strings.Join(c.Relations, ", ")), opts.MaxWidth))
	}
	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxWidth int) string {
	if maxWidth > 3 && len(s) > maxWidth {
		return s[:maxWidth-3] + "..."
	}
	return s
}

func sortedClasses(m map[string]int) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(NewTableFormatter())
}
