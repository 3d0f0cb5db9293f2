package main

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photovoter-cli",
	Short: "PhotoVoter CLI",
	Long:  `PhotoVoter CLI to perform system and admin operations`,
}

func main() {
	initMigrateCmd()

	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
