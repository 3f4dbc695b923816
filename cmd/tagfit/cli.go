package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/tagfit/internal/capacity"
	"github.com/hpungsan/tagfit/internal/config"
	"github.com/hpungsan/tagfit/internal/errors"
	"github.com/hpungsan/tagfit/internal/ops"
	"github.com/hpungsan/tagfit/internal/record"
	"github.com/hpungsan/tagfit/internal/report"
)

// maxStdinBytes caps how much record JSON is read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *zap.Logger) *cli.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	table := capacity.DefaultTable()

	app := &cli.App{
		Name:    "tagfit",
		Usage:   "NFC tag record fitting and write planning",
		Version: Version,
		Commands: []*cli.Command{
			profilesCmd(table),
			resolveCmd(table),
			estimateCmd(table),
			planCmd(db, table),
			reportCmd(db, table),
			draftCmd(db, cfg),
			simulateCmd(db, table, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// targetFlags select the tag a plan is computed for.
func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Resolve the tag type from this serial"},
		&cli.StringFlag{Name: "tag-type", Aliases: []string{"t"}, Usage: "Tag type: ntag213|ntag215|ntag216 (overrides --serial)"},
		&cli.IntFlag{Name: "budget", Aliases: []string{"b"}, Usage: "Explicit byte budget (overrides --tag-type)"},
	}
}

// draftFlags address a stored draft as the record source.
func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Use the records of the draft with this ID"},
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Use the records of the draft with this name"},
	}
}

func targetFromFlags(c *cli.Context) ops.Target {
	t := ops.Target{
		Serial:  c.String("serial"),
		TagType: c.String("tag-type"),
	}
	if c.IsSet("budget") {
		budget := c.Int("budget")
		t.Budget = &budget
	}
	return t
}

// profilesCmd creates the profiles command.
func profilesCmd(table *capacity.Table) *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List tag types and their write budgets",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.Profiles(table))
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(table *capacity.Table) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Infer the tag type from a serial or identifier",
		ArgsUsage: "<serial>",
		Action: func(c *cli.Context) error {
			return outputJSON(ops.Resolve(table, ops.ResolveInput{Serial: c.Args().First()}))
		},
	}
}

// estimateCmd creates the estimate command.
func estimateCmd(table *capacity.Table) *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Size a record set and check it against every tag type (reads records from stdin)",
		Action: func(c *cli.Context) error {
			records, err := requireStdinRecords()
			if err != nil {
				return outputError(err)
			}
			return outputJSON(ops.Estimate(table, ops.EstimateInput{Records: records}))
		},
	}
}

// planCmd creates the plan command.
func planCmd(db *sql.DB, table *capacity.Table) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Fit records to a tag's budget (reads records from stdin, or uses a draft)",
		Flags: append(targetFlags(), draftFlags()...),
		Action: func(c *cli.Context) error {
			output, err := runPlan(c, db, table)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(db *sql.DB, table *capacity.Table) *cli.Command {
	flags := append(targetFlags(), draftFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "title", Usage: "Report title"},
		&cli.BoolFlag{Name: "html", Usage: "Render HTML instead of markdown"},
	)
	return &cli.Command{
		Name:  "report",
		Usage: "Render a write plan as markdown or HTML",
		Flags: flags,
		Action: func(c *cli.Context) error {
			output, err := runPlan(c, db, table)
			if err != nil {
				return outputError(err)
			}

			title := c.String("title")
			if title == "" && c.String("name") != "" {
				title = c.String("name")
			}
			data := report.Data{
				Title:           title,
				TagType:         output.TagType,
				UsableBytes:     output.UsableBytes,
				EffectiveBudget: output.EffectiveBudget,
				Plan:            output.Plan,
			}

			text := report.Markdown(data)
			if c.Bool("html") {
				text, err = report.HTML(data)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			_, err = fmt.Fprint(os.Stdout, text)
			return err
		},
	}
}

func runPlan(c *cli.Context, db *sql.DB, table *capacity.Table) (*ops.PlanOutput, error) {
	input := ops.PlanInput{
		ID:     c.String("id"),
		Name:   c.String("name"),
		Target: targetFromFlags(c),
	}
	if input.ID == "" && input.Name == "" {
		records, err := requireStdinRecords()
		if err != nil {
			return nil, err
		}
		input.Records = records
	}
	return ops.Plan(c.Context, db, table, input)
}

// simulateCmd creates the simulate command.
func simulateCmd(db *sql.DB, table *capacity.Table, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Write records to an in-memory tag through a scan session (reads records from stdin, or uses a draft)",
		Flags: append(draftFlags(),
			&cli.StringFlag{Name: "serial", Aliases: []string{"s"}, Usage: "Serial reported by the simulated tag"},
			&cli.BoolFlag{Name: "fail-write", Usage: "Make the tag write fail"},
		),
		Action: func(c *cli.Context) error {
			input := ops.SimulateInput{
				Serial:    c.String("serial"),
				FailWrite: c.Bool("fail-write"),
			}

			if id, name := c.String("id"), c.String("name"); id != "" || name != "" {
				d, err := ops.Fetch(c.Context, db, ops.FetchInput{ID: id, Name: name})
				if err != nil {
					return outputError(err)
				}
				input.Records = d.Records
			} else {
				records, err := requireStdinRecords()
				if err != nil {
					return outputError(err)
				}
				input.Records = records
			}

			output, err := ops.Simulate(c.Context, logger, table, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// draftCmd creates the draft command group.
func draftCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Manage stored record sets",
		Subcommands: []*cli.Command{
			draftStoreCmd(db, cfg),
			draftFetchCmd(db),
			draftListCmd(db),
			draftDeleteCmd(db),
		},
	}
}

func draftStoreCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Store a draft (reads records from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Draft name"},
			&cli.StringFlag{Name: "title", Usage: "Draft title (defaults to name)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			records, err := requireStdinRecords()
			if err != nil {
				return outputError(err)
			}

			input := ops.StoreInput{
				Name:    c.String("name"),
				Records: records,
				Mode:    ops.StoreMode(c.String("mode")),
			}
			if title := c.String("title"); title != "" {
				input.Title = &title
			}

			output, err := ops.Store(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func draftFetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a draft by ID or name",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Draft name"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{Name: c.String("name")}
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			}

			output, err := ops.Fetch(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func draftListCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List drafts, most recently updated first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func draftDeleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a draft",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Draft name"},
		},
		Action: func(c *cli.Context) error {
			input := ops.DeleteInput{Name: c.String("name")}
			if c.NArg() > 0 {
				input.ID = c.Args().First()
			}

			output, err := ops.Delete(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.TagError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseRecords decodes a JSON array of records.
func parseRecords(s string) ([]record.Record, error) {
	var records []record.Record
	if err := json.Unmarshal([]byte(s), &records); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid records JSON: %v", err))
	}
	return records, nil
}

// requireStdinRecords reads a non-empty record array from stdin.
func requireStdinRecords() ([]record.Record, error) {
	if !stdinHasData() {
		return nil, errors.NewInvalidRequest("records must be piped via stdin as a JSON array")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if text == "" {
		return nil, errors.NewInvalidRequest("records are required")
	}
	records, err := parseRecords(text)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewInvalidRequest("records are required")
	}
	return records, nil
}
