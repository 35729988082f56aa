package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generatorsCmd = &cobra.Command{
	Use:   "generators",
	Short: "List available generators",
	Long: `List the built-in generators and the template generators discovered in
the generators directory (default: ~/.config/quill/generators).

A template generator is any *.tmpl file in that directory. It is named after
the file and writes <name>.out into the output directory.`,
	Args: cobra.NoArgs,
	RunE: runGenerators,
}

func init() {
	rootCmd.AddCommand(generatorsCmd)
}

func runGenerators(_ *cobra.Command, _ []string) error {
	reg, err := loadGenerators()
	if err != nil {
		return err
	}

	for _, name := range reg.Available() {
		marker := " "
		if name == cfg.Generator {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}
