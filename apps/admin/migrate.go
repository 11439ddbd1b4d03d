package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/spf13/cobra"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable
	openDBFunc   = openMigrationDB  // mockable
)

func openMigrationDB(conf *core.Config) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	return db.DB, nil
}

func (cli *commandLine) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, up-to VERSION, down, status, create NAME sql...)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.invoke(func(conf *core.Config) error {
				return cli.migrate(conf, args)
			})
		},
	}
}

func (cli *commandLine) migrate(conf *core.Config, args []string) error {
	db, err := openDBFunc(conf)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	return gooseRunFunc(db, args[0], args[1:]...)
}
