package root

import (
	"github.com/spf13/cobra"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "demo",
	Short:         "Hello Go Demo admin CLI",
	Long:          "Administrative commands for the Hello Go Demo web application: database migrations and user management.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// GetRoot returns the RootCmd.
func GetRoot() *cobra.Command {
	return RootCmd
}
