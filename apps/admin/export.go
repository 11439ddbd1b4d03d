package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
)

func (cli *commandLine) newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's schedule as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			roster, _ := cmd.Flags().GetString("roster")
			output, _ := cmd.Flags().GetString("output")
			return cli.invoke(func(svc schedule.ServiceInterface) error {
				return cli.export(cmd.Context(), svc, user, roster, output)
			})
		},
	}
	exportCmd.Flags().StringP("user", "u", "", "User ID")
	exportCmd.Flags().StringP("roster", "r", "", "Roster (e.g. SP26)")
	exportCmd.Flags().StringP("output", "o", "", "Output file path (stdout when empty)")
	_ = exportCmd.MarkFlagRequired("user")
	_ = exportCmd.MarkFlagRequired("roster")
	return exportCmd
}

func (cli *commandLine) export(ctx context.Context, svc schedule.ServiceInterface, user, roster, output string) error {

	var w io.Writer = cli.out
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer file.Close()
		w = file
	}
	return svc.ExportICS(ctx, user, roster, w)
}
