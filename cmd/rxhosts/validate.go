package main

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/x-stp/rxhosts/internal/hostname"
)

var validateCmd = &cobra.Command{
	Use:   "validate NAME...",
	Short: "Check names against the hostname rules used for filtering",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd, args)
	},
}

func runValidate(cmd *cobra.Command, names []string) error {
	out := cmd.OutOrStdout()
	invalid := 0
	for _, name := range names {
		if err := hostname.Check(name); err != nil {
			invalid++
			fmt.Fprintf(out, "%s\tinvalid: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s\tvalid\n", name)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d names are invalid", invalid, len(names))
	}
	return nil
}
