package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	container *dig.Container // dependencies are resolved by the commands that need them
	out       io.Writer
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Course Mapper administration commands",
		Long: `admin runs the maintenance tasks of the Course Mapper backend:
database migrations, catalog cache warm-up, development tokens and schedule exports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	rootCmd.SetOut(cli.out)
	rootCmd.SetErr(cli.out)

	rootCmd.AddCommand(
		cli.newMigrateCmd(),
		cli.newCacheCmd(),
		cli.newTokenCmd(),
		cli.newExportCmd(),
	)
	return rootCmd
}

// run executes the command line `args` (program name included).
func (cli *commandLine) run(args []string) error {
	rootCmd := cli.newRootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// invoke runs fn with its dependencies resolved from the container.
// fn's error, if any, is returned as is.
func (cli *commandLine) invoke(fn interface{}) error {
	return cli.container.Invoke(fn)
}
