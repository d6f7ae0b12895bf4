package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/noah-isme/sasm-ims-api/internal/service"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp  = errors.New("help provided")
	errNoTTY = errors.New("refusing to prompt without a terminal, pass --yes to confirm")
)

type maintenance interface {
	FixAllSchedules(ctx context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error)
	FixScholarSchedules(ctx context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error)
	FixServiceDuration(ctx context.Context, opts service.MaintenanceOptions) (*service.MaintenanceReport, error)
	SetEffectivityDates(ctx context.Context, opts service.MaintenanceOptions, confirm service.ConfirmFunc) (*service.MaintenanceReport, error)
	CheckOfficeFilter(ctx context.Context, email string) (*service.MaintenanceReport, error)
}

type commandLine struct {
	svc     maintenance
	stdin   io.Reader
	stdout  io.Writer
	stdinFd int
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage: maintenance COMMAND [flags]")
	fmt.Fprintln(cli.stdout, "")
	fmt.Fprintln(cli.stdout, "Commands:")
	fmt.Fprintln(cli.stdout, "  fix-all-schedules      deploy accepted trainees missing a scholar record and relabel their schedules")
	fmt.Fprintln(cli.stdout, "  fix-scholar-schedules  relink schedules of active scholars")
	fmt.Fprintln(cli.stdout, "  fix-service-duration   credit one service period per end-of-semester archive")
	fmt.Fprintln(cli.stdout, "  set-effectivity-date   backfill missing effectivity dates (prompts unless --yes)")
	fmt.Fprintln(cli.stdout, "  check-office-filter    diagnose an office user's scholar filter (-email required)")
	fmt.Fprintln(cli.stdout, "")
	fmt.Fprintln(cli.stdout, "Flags: -dry-run, -actor ID, -yes, -email ADDRESS")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
	fs.SetOutput(cli.stdout)
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	actor := fs.String("actor", "", "user id recorded as the actor of repairs")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	email := fs.String("email", "", "office user email (check-office-filter)")

	if err := fs.Parse(args[2:]); err != nil {
		return err
	}
	opts := service.MaintenanceOptions{DryRun: *dryRun, Actor: strings.TrimSpace(*actor)}

	var (
		report *service.MaintenanceReport
		err    error
	)
	switch args[1] {
	case "fix-all-schedules":
		report, err = cli.svc.FixAllSchedules(ctx, opts)
	case "fix-scholar-schedules":
		report, err = cli.svc.FixScholarSchedules(ctx, opts)
	case "fix-service-duration":
		report, err = cli.svc.FixServiceDuration(ctx, opts)
	case "set-effectivity-date":
		confirm := cli.prompt
		if *yes {
			confirm = func(int) (bool, error) { return true, nil }
		}
		report, err = cli.svc.SetEffectivityDates(ctx, opts, confirm)
	case "check-office-filter":
		if strings.TrimSpace(*email) == "" {
			fs.Usage()
			return errHelp
		}
		report, err = cli.svc.CheckOfficeFilter(ctx, strings.TrimSpace(*email))
	default:
		cli.printUsage()
		return errHelp
	}

	cli.print(report)
	return err
}

func (cli *commandLine) prompt(n int) (bool, error) {
	if !isTerminalFunc(cli.stdinFd) {
		return false, errNoTTY
	}
	fmt.Fprintf(cli.stdout, "About to update %d record(s). Continue? [y/N]: ", n)
	line, err := bufio.NewReader(cli.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (cli *commandLine) print(report *service.MaintenanceReport) {
	if report == nil {
		return
	}
	for _, line := range report.Lines {
		fmt.Fprintln(cli.stdout, line)
	}
	fmt.Fprintln(cli.stdout, report.Summary())
}

func newCommandLine(svc maintenance) *commandLine {
	return &commandLine{svc: svc, stdin: os.Stdin, stdout: os.Stdout, stdinFd: int(os.Stdin.Fd())}
}
