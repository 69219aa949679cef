package main

import (
	"fmt"
	"os"

	"github.com/crucial707/webdemo/cmd/cli/migrate"
	"github.com/crucial707/webdemo/cmd/cli/root"
	"github.com/crucial707/webdemo/cmd/cli/users"
)

func main() {
	rootCmd := root.GetRoot()
	migrate.InitMigrate(rootCmd)
	users.InitUsers(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
