package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/panelkit/internal/events"
	"github.com/alfredjeanlab/panelkit/internal/model"
	"github.com/alfredjeanlab/panelkit/internal/params"
	"github.com/alfredjeanlab/panelkit/internal/ui"
)

var paramCmd = &cobra.Command{
	Use:     "param",
	Short:   "Read and write component parameters",
	GroupID: "data",
}

// paramStore resolves the component argument to its parameter store.
func paramStore(name string) (*params.Store, error) {
	def, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return params.New(db, def.Name), nil
}

var paramGetCmd = &cobra.Command{
	Use:   "get <component> <section> <name>",
	Short: "Print a parameter value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := paramStore(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if cmd.Flags().Changed("default") {
			def, _ := cmd.Flags().GetString("default")
			v, err := ps.Get(cmd.Context(), args[1], args[2], def)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(out, map[string]string{"value": v})
			}
			fmt.Fprintln(out, v)
			return nil
		}

		p, err := ps.Lookup(cmd.Context(), args[1], args[2])
		if err != nil {
			return fmt.Errorf("parameter %s/%s: %w", args[1], args[2], err)
		}
		if jsonOutput {
			return printJSON(out, p)
		}
		fmt.Fprintln(out, p.Value)
		return nil
	},
}

var paramSetCmd = &cobra.Command{
	Use:   "set <component> <section> <name> <value>",
	Short: "Insert or update a parameter",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := paramStore(args[0])
		if err != nil {
			return err
		}
		var opts []params.Option
		if d, _ := cmd.Flags().GetString("description"); d != "" {
			opts = append(opts, params.WithDescription(d))
		}
		if t, _ := cmd.Flags().GetString("type"); t != "" {
			opts = append(opts, params.WithType(model.ValueType(t)))
		}
		if cmd.Flags().Changed("min") {
			lo, _ := cmd.Flags().GetFloat64("min")
			opts = append(opts, params.WithMin(lo))
		}
		if cmd.Flags().Changed("max") {
			hi, _ := cmd.Flags().GetFloat64("max")
			opts = append(opts, params.WithMax(hi))
		}
		if _, err := ps.Set(cmd.Context(), args[1], args[2], args[3], opts...); err != nil {
			return err
		}

		p, err := ps.Lookup(cmd.Context(), args[1], args[2])
		if err != nil {
			return err
		}
		emitter, closeEmitter := newEmitter()
		defer closeEmitter()
		emitter.Emit(cmd.Context(), events.TopicParameterSet, ps.Component(), events.ParameterSet{
			Section:   p.Section,
			Name:      p.Name,
			Value:     p.Value,
			ValueType: string(p.ValueType),
		})

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s = %s\n", p.Section, p.Name, p.Value)
		return nil
	},
}

var paramListCmd = &cobra.Command{
	Use:   "list <component>",
	Short: "List parameters grouped by section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := paramStore(args[0])
		if err != nil {
			return err
		}
		section, _ := cmd.Flags().GetString("section")
		search, _ := cmd.Flags().GetString("search")
		list, err := ps.List(cmd.Context(), model.ParameterFilter{Section: section, Search: search})
		if err != nil {
			return err
		}
		groups := params.Group(list)
		if jsonOutput {
			if groups == nil {
				groups = []params.Section{}
			}
			return printJSON(cmd.OutOrStdout(), groups)
		}
		printParameterSections(cmd, groups)
		return nil
	},
}

func printParameterSections(cmd *cobra.Command, groups []params.Section) {
	out := cmd.OutOrStdout()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No parameters.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, ui.RenderAccent(g.Name))
		for _, p := range g.Parameters {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", p.Name, p.Value, params.Hint(p), describeRange(p))
		}
	}
	w.Flush()
}

// describeRange renders the numeric range and description of p.
func describeRange(p *model.Parameter) string {
	s := p.Description
	if p.MinRange != nil && p.MaxRange != nil {
		r := "[" + strconv.FormatFloat(*p.MinRange, 'g', -1, 64) + ", " + strconv.FormatFloat(*p.MaxRange, 'g', -1, 64) + "]"
		if s != "" {
			return s + " " + ui.RenderMuted(r)
		}
		return ui.RenderMuted(r)
	}
	return s
}

var paramDeleteCmd = &cobra.Command{
	Use:   "delete <component> <section> <name>",
	Short: "Delete a parameter",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ps, err := paramStore(args[0])
		if err != nil {
			return err
		}
		if err := ps.Delete(cmd.Context(), args[1], args[2]); err != nil {
			return fmt.Errorf("parameter %s/%s: %w", args[1], args[2], err)
		}
		emitter, closeEmitter := newEmitter()
		defer closeEmitter()
		emitter.Emit(cmd.Context(), events.TopicParameterDeleted, ps.Component(), events.ParameterDeleted{Section: args[1], Name: args[2]})
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", args[1], args[2])
		}
		return nil
	},
}

func init() {
	paramGetCmd.Flags().String("default", "", "value to print when the parameter does not exist")

	paramSetCmd.Flags().String("description", "", "parameter description")
	paramSetCmd.Flags().String("type", "", "value type: boolean, number or text (default: inferred)")
	paramSetCmd.Flags().Float64("min", 0, "minimum of the numeric range")
	paramSetCmd.Flags().Float64("max", 0, "maximum of the numeric range")

	paramListCmd.Flags().String("section", "", "only this section")
	paramListCmd.Flags().String("search", "", "only names containing this text")

	paramCmd.AddCommand(paramGetCmd, paramSetCmd, paramListCmd, paramDeleteCmd)
}
