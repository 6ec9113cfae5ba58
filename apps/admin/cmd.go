package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db    *sql.DB
	years *schoolyear.Service
	out   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createdb - create the database if it does not exist")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the embedded migrations")
	fmt.Fprintln(cli.out, "  listyears - list school years")
	fmt.Fprintln(cli.out, "  createyear -name YYYY-YYYY - add a school year")
	fmt.Fprintln(cli.out, "  activateyear -id ID - make a school year the active one")
	fmt.Fprintln(cli.out, "  lockyear -id ID - freeze a school year's enrollments")
	fmt.Fprintln(cli.out, "  unlockyear -id ID - unfreeze a school year")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	createYearCmd := flag.NewFlagSet("createyear", flag.ExitOnError)
	createYearName := createYearCmd.String("name", "", "The school year, e.g. 2024-2025.")

	yearIDCmd := flag.NewFlagSet(args[1], flag.ExitOnError)
	yearID := yearIDCmd.Int("id", 0, "The school year id.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "listyears":
		return cli.listYears(ctx)
	case "createyear":
		if err := createYearCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createYearName == "" {
			createYearCmd.Usage()
			return errHelp
		}
		year, err := cli.years.Create(ctx, schoolyear.NewSchoolYear{Name: *createYearName})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created school year %s (id %d)\n", year.Name, year.ID)
		return nil
	case "activateyear", "lockyear", "unlockyear":
		if err := yearIDCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *yearID <= 0 {
			yearIDCmd.Usage()
			return errHelp
		}
		return cli.yearAction(ctx, args[1], *yearID)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) yearAction(ctx context.Context, action string, id int) error {
	var (
		res schoolyear.LockResult
		err error
	)
	switch action {
	case "activateyear":
		if res.Year, err = cli.years.SetActive(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s is now the active school year\n", res.Year.Name)
		return nil
	case "lockyear":
		res, err = cli.years.Lock(ctx, id)
	default:
		res, err = cli.years.Unlock(ctx, id)
	}
	if err != nil {
		return err
	}

	state := "unlocked"
	if res.Year.IsLocked {
		state = "locked"
	}
	if res.Unchanged() {
		fmt.Fprintf(cli.out, "%s was already %s\n", res.Year.Name, state)
	} else {
		fmt.Fprintf(cli.out, "%s is now %s\n", res.Year.Name, state)
	}
	return nil
}

func (cli *commandLine) listYears(ctx context.Context) error {
	years, err := cli.years.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tLOCKED")
	for _, y := range years {
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", y.ID, y.Name, y.IsActive, y.IsLocked)
	}
	return w.Flush()
}
