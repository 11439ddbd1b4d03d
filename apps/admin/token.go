package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/8ddieHu0314/Course-Mapper-sub000/apps/api/echo"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

var errNotDebug = errors.New("token: development tokens are only issued in debug mode")

func (cli *commandLine) newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, _ := cmd.Flags().GetString("sub")
			email, _ := cmd.Flags().GetString("email")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			return cli.invoke(func(conf *core.Config) error {
				return cli.printToken(conf, sub, email, ttl)
			})
		},
	}
	tokenCmd.Flags().String("sub", "", "User ID (the token subject)")
	tokenCmd.Flags().String("email", "", "User email")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")
	return tokenCmd
}

func (cli *commandLine) printToken(conf *core.Config, sub, email string, ttl time.Duration) error {
	if !conf.Debug {
		return errNotDebug
	}
	sub = core.CleanString(sub)
	if sub == "" {
		return errors.New("token: --sub must not be blank")
	}

	claims := echoapi.NewClaims(conf, sub, core.CleanString(email, true /* lower */), ttl)
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
