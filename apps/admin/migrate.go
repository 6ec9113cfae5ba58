package main

import (
	"context"

	"github.com/pressly/goose/v3"
)

var gooseRunFunc = goose.RunContext // mockable

// migrate forwards a goose command to the embedded migrations.
func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(context.Background(), args[0], cli.db, "migrations", arguments...)
}
