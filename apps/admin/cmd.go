package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/diario/core/attendance"
)

var (
	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres storage (set STORAGE=postgres)")
)

type commandLine struct {
	db       *sql.DB // nil unless the storage is postgres
	svc      *attendance.Service
	saver    attendance.ClassSaver
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  stats -class ID - print the attendance statistics of a class")
	fmt.Fprintln(cli.out, "  report -class ID -out FILE.xlsx - write the attendance sheet of a class")
	fmt.Fprintln(cli.out, "  import -file FILE.json - validate and store the classes listed in a JSON file")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	statsCmd := cli.newFlagSet("stats")
	statsClass := statsCmd.String("class", "", "The class id.")

	reportCmd := cli.newFlagSet("report")
	reportClass := reportCmd.String("class", "", "The class id.")
	reportOut := reportCmd.String("out", "", "The spreadsheet to write, i.e. attendance.xlsx")

	importCmd := cli.newFlagSet("import")
	importPath := importCmd.String("file", "", "A JSON array of classes.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *statsClass == "" {
			statsCmd.Usage()
			return errHelp
		}
		return cli.stats(*statsClass)

	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportClass == "" || *reportOut == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(*reportClass, *reportOut)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importPath == "" {
			importCmd.Usage()
			return errHelp
		}
		return importFile(cli.saver, cli.validate, *importPath, cli.out)

	default:
		cli.printUsage()
		return errHelp
	}
}
