package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wbstatus/internal/config"
	"github.com/mtlprog/wbstatus/internal/domain"
	"github.com/mtlprog/wbstatus/internal/repository"
	"github.com/mtlprog/wbstatus/internal/workboard"
)

func snapshotCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Value:   config.DefaultSnapshotDir,
		Usage:   "Directory of saved workboard pages named workboard-<time>.html",
		EnvVars: []string{"SNAPSHOT_DIR"},
	}

	return &cli.Command{
		Name:  "snapshot",
		Usage: "Work with saved workboard HTML pages",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Parse a saved workboard page and store it in the database",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "taken-at",
						Usage: "When the page was saved, RFC 3339 (default: file modification time)",
					},
				},
				Action: runSnapshotImport,
			},
			{
				Name:      "diff",
				Usage:     "Print the column changes between two workboard pages as JSON",
				ArgsUsage: "[OLD NEW]",
				Flags: []cli.Flag{
					dirFlag,
					&cli.TimestampFlag{
						Name:   "from",
						Layout: time.RFC3339,
						Usage:  "Time of the older page in --dir",
					},
					&cli.TimestampFlag{
						Name:   "to",
						Layout: time.RFC3339,
						Usage:  "Time of the newer page in --dir",
					},
				},
				Action: runSnapshotDiff,
			},
		},
	}
}

func runSnapshotImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("snapshot import needs exactly one FILE")
	}
	path := c.Args().First()

	takenAt, err := snapshotTime(path, c.String("taken-at"))
	if err != nil {
		return err
	}

	snapshot, err := workboard.ParseFile(path)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("snapshot import needs --database-url")
	}
	defer db.Close()

	if err := repository.NewSnapshotRepository(db.Pool()).Save(c.Context, takenAt, snapshot); err != nil {
		return err
	}

	slog.Info("snapshot imported", "file", path, "taken_at", takenAt, "tasks", len(snapshot))
	return nil
}

func snapshotTime(path, takenAt string) (time.Time, error) {
	if takenAt != "" {
		t, err := time.Parse(time.RFC3339, takenAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse --taken-at: %w", err)
		}
		return t, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat snapshot: %w", err)
	}
	return info.ModTime(), nil
}

func runSnapshotDiff(c *cli.Context) error {
	var before, after domain.Snapshot
	var err error

	switch {
	case c.NArg() == 2:
		if before, err = workboard.ParseFile(c.Args().Get(0)); err != nil {
			return err
		}
		if after, err = workboard.ParseFile(c.Args().Get(1)); err != nil {
			return err
		}
	case c.Timestamp("from") != nil && c.Timestamp("to") != nil:
		dir := c.String("dir")
		if before, err = workboard.ParseFile(workboard.SnapshotPath(dir, *c.Timestamp("from"))); err != nil {
			return err
		}
		if after, err = workboard.ParseFile(workboard.SnapshotPath(dir, *c.Timestamp("to"))); err != nil {
			return err
		}
	default:
		return errors.New("snapshot diff needs OLD NEW files or --from and --to")
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(workboard.Diff(before, after))
}
