// Package export renders evaluated standings as spreadsheet-friendly CSV.
//
// Files use ";" separators, a UTF-8 byte order mark and decimal commas so
// they open correctly in Turkish-locale Excel.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/okian/swatrank/internal/domain/model"
	"github.com/okian/swatrank/internal/domain/scoring"
)

const (
	separator = ';'
	bom       = "\uFEFF"
)

// ErrUnknownStage is returned when a stage export names a stage that is not
// part of the result.
var ErrUnknownStage = errors.New("unknown stage")

// Option applies a configuration option to an export.
type Option func(*settings)

type settings struct {
	precision int
	masked    bool
	bom       bool
}

func newSettings(opts []Option) settings {
	s := settings{precision: 2, bom: true}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithPrecision sets the number of decimals totals are rounded to.
func WithPrecision(decimals int) Option {
	return func(s *settings) {
		if decimals >= 0 {
			s.precision = decimals
		}
	}
}

// WithMaskedNames replaces names with MaskName output.
func WithMaskedNames(masked bool) Option {
	return func(s *settings) { s.masked = masked }
}

// WithBOM controls the leading byte order mark.
func WithBOM(enabled bool) Option {
	return func(s *settings) { s.bom = enabled }
}

func (s settings) name(p model.Participant) string {
	if s.masked {
		return MaskName(p.Name)
	}
	return p.Name
}

func newWriter(w io.Writer, s settings) (*csv.Writer, error) {
	if s.bom {
		if _, err := io.WriteString(w, bom); err != nil {
			return nil, fmt.Errorf("writing bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	cw.Comma = separator
	return cw, nil
}

// valueCell renders a measurement. Time values use a decimal comma.
func valueCell(metric model.Metric, v *float64) string {
	if v == nil {
		return ""
	}
	if metric == model.MetricTime {
		return decimalCell(v)
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func decimalCell(v *float64) string {
	if v == nil {
		return ""
	}
	return Decimal(*v)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// OverallHeader returns the overall table header for stages.
func OverallHeader(stages []model.Stage) []string {
	header := make([]string, 0, 3+2*len(stages))
	header = append(header, "Genel Sıra", "Katılımcı")
	for _, s := range stages {
		header = append(header,
			fmt.Sprintf("%s (%s)", s.Title, s.Metric.Unit()),
			s.Title+" Puan",
		)
	}
	return append(header, "Genel Toplam")
}

// WriteOverall writes the overall standings with a value and points column
// pair per stage.
func WriteOverall(w io.Writer, res scoring.Result, opts ...Option) error {
	s := newSettings(opts)
	cw, err := newWriter(w, s)
	if err != nil {
		return err
	}
	if err := cw.Write(OverallHeader(res.Stages)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, o := range res.Overall {
		row := make([]string, 0, 3+2*len(res.Stages))
		row = append(row, strconv.Itoa(o.Position), s.name(o.Participant))
		breakdown := res.Breakdown(o.Participant.ID)
		for i, stage := range res.Stages {
			var outcome model.StageOutcome
			if i < len(breakdown) {
				outcome = breakdown[i]
			}
			row = append(row, valueCell(stage.Metric, outcome.Value), intCell(outcome.Points))
		}
		row = append(row, Decimal(scoring.Round(o.Total, s.precision)))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// StageHeader returns the stage table header.
func StageHeader(stage model.Stage) []string {
	valueTitle := "Süre (dk)"
	if stage.Metric == model.MetricCount {
		valueTitle = "Tekrar (adet)"
	}
	return []string{"Sıra", "Katılımcı", valueTitle, "Puan"}
}

// WriteStage writes one stage table: ranked rows first, then participants
// without a measurement.
func WriteStage(w io.Writer, res scoring.Result, stageID string, opts ...Option) error {
	rows, ok := res.StageRows(stageID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stageID)
	}
	ranking, _ := res.Ranking(stageID)

	s := newSettings(opts)
	cw, err := newWriter(w, s)
	if err != nil {
		return err
	}
	if err := cw.Write(StageHeader(ranking.Stage)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			intCell(r.Outcome.Rank),
			s.name(r.Participant),
			decimalCell(r.Outcome.Value),
			intCell(r.Outcome.Points),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// OverallFileName is the download name of an overall export.
func OverallFileName(mode string, day time.Time) string {
	return fmt.Sprintf("swat-%s-export-%s.csv", mode, day.Format(time.DateOnly))
}

// StageFileName is the download name of a stage export.
func StageFileName(mode, stageID string) string {
	return fmt.Sprintf("swat-%s-%s-ranking.csv", mode, stageID)
}
