package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kasirpos/internal/domain"
)

// posctl users list
func (c *cli) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Inspect user accounts",
	}
	users.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts with their effective permissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.rt.Service.ListUsers(c.ctx(cmd))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tPERMISSIONS")
			for _, u := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, permissionList(u.Permissions))
			}
			return tw.Flush()
		},
	})
	return users
}

func permissionList(p domain.Permissions) string {
	names := make([]string, 0, 4)
	for _, c := range []domain.Capability{domain.CapManageProducts, domain.CapViewReports, domain.CapManagePurchases, domain.CapProcessReturns} {
		if p.Allows(c) {
			names = append(names, c.String())
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
