package main

import (
	"github.com/hucares/hucares/storage/database"
)

var migrationRunFunc = database.RunMigrationCommand // mockable

func (cli *commandLine) migrate(args []string) error {
	return migrationRunFunc(cli.db, args[0], args[1:]...)
}
