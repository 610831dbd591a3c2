package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neko233-com/iocrest-go/bootstrap"
)

func newModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "列出可通过 iocrest.modules 引用的模块",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range bootstrap.ModuleNames() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
