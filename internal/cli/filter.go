package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/listcutter/internal/core"
)

type filterOptions struct {
	filtersFile string
	where       []string
	logic       string
	columns     []string
	limit       int
	offset      int
}

// filterFile is the YAML form of a filter request:
//
//	logic: or
//	predicates:
//	  - column: city
//	    operator: equals
//	    value: Oslo
//	  - column: signup
//	    operator: last_n_days
//	    value: "30"
//	    negated: true
//	columns: [name, city]
//	limit: 50
type filterFile struct {
	core.FilterExpression `yaml:",inline"`

	Columns []string `yaml:"columns"`
	Limit   int      `yaml:"limit"`
	Offset  int      `yaml:"offset"`
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter <file> [--where column:operator:value]... [--filters file.yaml]",
		Short: "Print the rows matching a set of conditions",
		Long: `Print the rows matching every condition (or any, with --logic or).

Conditions come from a YAML file (--filters), from repeated --where flags, or
both; --where conditions are added after the file's. A --where flag has the
form column:operator:value. Prefix the operator with ! to negate it:

  listcutter filter people.csv --where city:equals:Oslo --where age:!less_than:30

Operators: is_null not_null contains equals not_equals starts_with ends_with
regex in_list greater_than less_than between range before after date_range
last_n_days this_month this_year is_true is_false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request(cmd)
			if err != nil {
				return err
			}
			w, err := rootOpts.writer(cmd)
			if err != nil {
				return err
			}
			text, err := rootOpts.readInput(cmd, args[0])
			if err != nil {
				return err
			}

			res, err := rootOpts.engine(cmd).Filter(cmd.Context(), text, req)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return w.WriteRows(args[0], res)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.filtersFile, "filters", "", "YAML file with predicates, logic, columns and paging")
	flags.StringArrayVarP(&opts.where, "where", "w", nil, "condition as column:operator:value (repeatable)")
	flags.StringVar(&opts.logic, "logic", "", "combine conditions with AND or OR (default AND)")
	flags.StringSliceVar(&opts.columns, "columns", nil, "output columns, in order (default all)")
	flags.IntVar(&opts.limit, "limit", 0, "rows per page (default from the engine)")
	flags.IntVar(&opts.offset, "offset", 0, "matched rows to skip")

	return cmd
}

// request merges the filters file with the command line. Flags that were
// set explicitly win over the file.
func (o *filterOptions) request(cmd *cobra.Command) (core.FilterRequest, error) {
	var ff filterFile
	if o.filtersFile != "" {
		loaded, err := loadFilterFile(o.filtersFile)
		if err != nil {
			return core.FilterRequest{}, err
		}
		ff = *loaded
	}

	for _, w := range o.where {
		p, err := parseWhere(w)
		if err != nil {
			return core.FilterRequest{}, err
		}
		ff.Predicates = append(ff.Predicates, p)
	}

	flags := cmd.Flags()
	if flags.Changed("logic") {
		ff.Logic = core.LogicalOperator(o.logic)
	}
	if flags.Changed("columns") {
		ff.Columns = o.columns
	}
	if flags.Changed("limit") {
		ff.Limit = o.limit
	}
	if flags.Changed("offset") {
		ff.Offset = o.offset
	}

	return core.FilterRequest{
		Expression: ff.FilterExpression,
		Page:       core.Pagination{Limit: ff.Limit, Offset: ff.Offset},
		Columns:    ff.Columns,
	}, nil
}

func loadFilterFile(path string) (*filterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filters: %w", err)
	}

	var ff filterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("parse filters %s: %w", path, err)
	}
	return &ff, nil
}

// parseWhere parses column:operator:value. The value may itself contain
// colons; a missing value is allowed for operators that take none.
func parseWhere(s string) (core.FilterPredicate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return core.FilterPredicate{}, fmt.Errorf("invalid --where %q: use column:operator:value", s)
	}

	p := core.FilterPredicate{Column: strings.TrimSpace(parts[0])}
	op := strings.TrimSpace(parts[1])
	if rest, ok := strings.CutPrefix(op, "!"); ok {
		p.Negated = true
		op = rest
	}
	p.Operator = core.FilterOperator(op)
	if len(parts) == 3 {
		p.Value = parts[2]
	}
	return p, nil
}
