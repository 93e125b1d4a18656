package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// Categories are managed outside of the service, this importer is the
// external tool that loads them.
var opts = struct {
	Categories string `long:"categories" env:"CATEGORIES" default:"categories.json" description:"path to categories file"`
	Postgres   string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "seedcategories"
	parser.LongDescription = "Categories importer"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	b, err := os.ReadFile(opts.Categories)
	if err != nil {
		logrus.WithError(err).Fatal("failed to read categories file")
	}

	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		logrus.WithError(err).Fatal("failed to parse categories file")
	}

	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}

	ext := sqlx.NewDb(db, "postgres")
	ctx := context.Background()

	for _, name := range names {
		if _, err := ext.ExecContext(ctx, `INSERT INTO category(name) VALUES($1)`, name); err != nil {
			logrus.WithError(err).WithField("category", name).Fatal("failed to insert category")
		}

		logrus.WithField("category", name).Info("category inserted")
	}

	logrus.Infof("%d categories imported", len(names))
}
