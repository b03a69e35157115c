// Command swatrank-export renders a standings CSV from a YAML snapshot
// without a running service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/swatrank/internal/config"
	"github.com/okian/swatrank/internal/domain/collation"
	"github.com/okian/swatrank/internal/domain/scoring"
	"github.com/okian/swatrank/internal/export"
	"github.com/okian/swatrank/pkg/logger"
)

var errUsage = errors.New("usage")

func main() {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		logger.Get().Error(ctx, "export failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("swatrank-export", flag.ContinueOnError)
	var (
		snapshotPath = fs.String("snapshot", "", "YAML snapshot with participants and results (required)")
		mode         = fs.String("mode", "", "competition mode; defaults to the snapshot's mode")
		stage        = fs.String("stage", "", "export one stage table instead of the overall table")
		out          = fs.String("out", "-", `output file, "-" for stdout, "auto" for the download name`)
		masked       = fs.Bool("masked", false, "mask surnames")
		noBOM        = fs.Bool("no-bom", false, "omit the UTF-8 byte order mark")
	)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *snapshotPath == "" {
		fs.Usage()
		return fmt.Errorf("%w: -snapshot is required", errUsage)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	f, err := os.Open(*snapshotPath)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	snap, err := decodeSnapshot(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	if *mode == "" {
		*mode = snap.Mode
	}

	stages, ok := cfg.Catalog().Stages(*mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", *mode)
	}
	coll, err := collation.New(cfg.CollationLocale)
	if err != nil {
		return err
	}
	engine := scoring.NewEngine(
		scoring.WithComparator(coll.Func()),
		scoring.WithPrecision(cfg.TotalPrecision),
	)
	res := engine.Evaluate(stages, snap.participants(), snap.measurements())

	logger.Get().Info(ctx, "snapshot evaluated",
		logger.String("mode", *mode),
		logger.Int("participants", len(res.Participants)),
		logger.Int("stages", len(res.Stages)),
	)

	w, name, closeOut, err := openOutput(*out, *mode, *stage, stdout)
	if err != nil {
		return err
	}
	opts := []export.Option{
		export.WithPrecision(engine.Precision()),
		export.WithMaskedNames(*masked),
		export.WithBOM(!*noBOM),
	}
	if *stage != "" {
		err = export.WriteStage(w, res, *stage, opts...)
	} else {
		err = export.WriteOverall(w, res, opts...)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// openOutput resolves the -out flag.
func openOutput(out, mode, stage string, stdout io.Writer) (io.Writer, string, func() error, error) {
	switch out {
	case "", "-":
		return stdout, "stdout", func() error { return nil }, nil
	case "auto":
		if stage != "" {
			out = export.StageFileName(mode, stage)
		} else {
			out = export.OverallFileName(mode, time.Now())
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return nil, "", nil, fmt.Errorf("creating output: %w", err)
	}
	return f, out, f.Close, nil
}
