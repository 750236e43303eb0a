// Command debtbook-report prints the cash book and the yearly analysis of a
// SQLite ledger.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"debtbook/internal/cli"
	"debtbook/internal/core"
	"debtbook/internal/ledger"
	applog "debtbook/internal/log"
)

type options struct {
	start  string
	end    string
	year   int
	policy string
	json   bool
	dbPath string
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLoggerTo(applog.ComponentReport, os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	opts := options{}
	flag.StringVar(&opts.start, "start", "", "first day of the cash book (YYYY-MM-DD)")
	flag.StringVar(&opts.end, "end", "", "last day of the cash book (YYYY-MM-DD)")
	flag.IntVar(&opts.year, "year", 0, "print only this year of the analysis")
	flag.StringVar(&opts.policy, "policy", cfg.ReportYearPolicy, "year selection: registrations or activity")
	flag.BoolVar(&opts.json, "json", false, "print JSON instead of tables")
	flag.StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	flag.Parse()

	policy := ledger.YearPolicy(opts.policy)
	if err := validatePolicy(policy); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger, opts.dbPath)
	defer repo.Close()

	reporter := ledger.NewReporter(repo, policy)
	if err := run(context.Background(), os.Stdout, reporter, opts); err != nil {
		logger.Error("Report failed", "error", err)
		repo.Close()
		os.Exit(1)
	}
}

type output struct {
	CashBook ledger.CashBook     `json:"cash_book"`
	Analysis []ledger.YearReport `json:"analysis"`
}

func run(ctx context.Context, w io.Writer, reporter *ledger.Reporter, opts options) error {
	rng, err := parseRange(opts.start, opts.end)
	if err != nil {
		return err
	}
	book, err := reporter.CashBook(ctx, rng)
	if err != nil {
		return fmt.Errorf("cash book: %w", err)
	}

	var years []ledger.YearReport
	if opts.year != 0 {
		yr, err := reporter.YearReport(ctx, opts.year)
		if err != nil {
			return fmt.Errorf("year report: %w", err)
		}
		years = []ledger.YearReport{yr}
	} else {
		a, err := reporter.Analysis(ctx)
		if err != nil {
			return fmt.Errorf("analysis: %w", err)
		}
		years = a.Years
	}

	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output{CashBook: book, Analysis: years})
	}
	return printText(w, book, years)
}

func validatePolicy(p ledger.YearPolicy) error {
	if !p.IsValid() {
		return fmt.Errorf("-policy must be %q or %q, got %q", ledger.YearsFromRegistrations, ledger.YearsFromActivity, p)
	}
	return nil
}

func parseRange(start, end string) (core.DateRange, error) {
	var rng core.DateRange
	var err error
	if start != "" {
		if rng.Start, err = core.ParseDate(start); err != nil {
			return rng, fmt.Errorf("-start: %w", err)
		}
	}
	if end != "" {
		if rng.End, err = core.ParseDate(end); err != nil {
			return rng, fmt.Errorf("-end: %w", err)
		}
	}
	return rng, nil
}

func printText(w io.Writer, book ledger.CashBook, years []ledger.YearReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Cash book %s\t\n", book.Range)
	fmt.Fprintf(tw, "Total revenue\t%s\t\n", book.TotalRevenue)
	fmt.Fprintf(tw, "Credit revenue\t%s\t\n", book.CreditRevenue)
	fmt.Fprintf(tw, "Cash revenue\t%s\t\n", book.CashRevenue)
	fmt.Fprintf(tw, "Remaining debt\t%s\t\n", book.TotalRemainingDebt)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "ID\tCustomer\tDebt\t")
	for _, d := range book.Debts {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t\n", d.CustomerID, d.FirstName, d.LastName, d.RemainingDebt)
	}

	for _, y := range years {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "%d\tWork received\tPayments\tCash sales\tRevenue\t\n", y.Year)
		for i := range y.WorkReceived {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				y.WorkReceived[i].Name,
				y.WorkReceived[i].Amount,
				y.Revenue.Payments[i].Amount,
				y.Revenue.CashSales[i].Amount,
				y.Revenue.Total[i].Amount)
		}
	}
	return tw.Flush()
}
