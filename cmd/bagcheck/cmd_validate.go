package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spboyer/bagcheck/internal/projectconfig"
	"github.com/spboyer/bagcheck/internal/validation"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a .bagcheck.yaml against its schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := projectconfig.FileName
			if len(args) > 0 {
				path = args[0]
			}
			errs, err := validation.ValidateConfigFile(filepath.Clean(path))
			if err != nil {
				return err
			}
			if len(errs) > 0 {
				return fmt.Errorf("%s is invalid:\n  %s", path, strings.Join(errs, "\n  "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path) //nolint:errcheck
			return nil
		},
	}
}
