package main

import (
	"fmt"

	"github.com/aretw0/intake/pkg/form"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Inspect and validate form definitions",
}

var formShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active form as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		def, err := loadForm(cfg)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(def)
	},
}

var formValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a form definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := form.Load(args[0])
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Form is valid! ✅ (%d steps)\n", def.StepCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formCmd)
	formCmd.AddCommand(formShowCmd, formValidateCmd)
}
