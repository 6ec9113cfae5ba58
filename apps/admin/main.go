package main

import (
	"log"
	"os"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.Conf

	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		errAndDie(database.CreateIfNotExist(conf))
		logger.Printf("database %q is ready", conf.Database.Name)
		return
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:    db.DB,
		years: schoolyear.NewService(database.NewTransactor(db), sqlxrepos.NewSchoolYearRepository(db)),
		out:   os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
