package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgomes/livemath/calc"
)

func newUnitsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "units [filter]",
		Short: "List the built-in units with their dimension and SI scale",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}
			writeTable(a.stdout, unitRows(calc.NewUnitRegistry().Units(), filter))
			return nil
		},
	}
}

// unitRows builds the table for the units whose name or dimension contains
// filter. The header row is always present.
func unitRows(units []calc.Unit, filter string) [][]string {
	rows := [][]string{{"UNIT", "DIMENSION", "SCALE"}}
	for _, u := range units {
		dim := u.Dim.Describe()
		if filter != "" && !strings.Contains(strings.ToLower(u.Name), filter) && !strings.Contains(dim, filter) {
			continue
		}
		rows = append(rows, []string{u.Name, dim, strconv.FormatFloat(u.Scale, 'g', -1, 64)})
	}
	return rows
}
