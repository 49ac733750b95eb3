// Package export renders calculation series for people: unit conversion to
// dB scales, the metadata block that describes a run, aligned text tables and
// CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/signalsfoundry/propagation-tool/core"
)

// DBm converts watts to dBm.
func DBm(w float64) float64 { return 10 * math.Log10(w*1e3) }

// DBuVPerCm converts V/m to dBµV/cm.
func DBuVPerCm(e float64) float64 { return 20 * math.Log10(e*1e6/100) }

var (
	DistanceHeaders = []string{"d (km)", "Pr (dBm)", "Er (dBuV/cm)", "Pr FS (dBm)", "Er FS (dBuV/cm)", "|Gamma|", "|F_i|"}
	HeightHeaders   = []string{"h (m)", "Pr (dBm)", "Er (dBuV/cm)", "|Gamma|", "|F_i|", "Fresnel"}
)

// Table is a header row plus formatted data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

func sci(v float64) string { return fmt.Sprintf("%.2e", v) }

// DistanceTable lays out the distance series of calc.
func DistanceTable(calc core.Calculation) Table {
	t := Table{Headers: DistanceHeaders, Rows: make([][]string, 0, len(calc.Distance.Samples))}
	for _, s := range calc.Distance.Samples {
		r := s.Result
		t.Rows = append(t.Rows, []string{
			sci(s.Distance / 1000),
			sci(DBm(r.Power)),
			sci(DBuVPerCm(r.Field)),
			sci(DBm(r.FreeSpacePower)),
			sci(DBuVPerCm(r.FreeSpaceField)),
			sci(r.ReflectionMagnitude),
			sci(r.InterferenceMagnitude),
		})
	}
	return t
}

// HeightTable lays out the height series of calc.
func HeightTable(calc core.Calculation) Table {
	t := Table{Headers: HeightHeaders, Rows: make([][]string, 0, len(calc.Height.Samples))}
	for _, s := range calc.Height.Samples {
		r := s.Result
		t.Rows = append(t.Rows, []string{
			sci(s.Height),
			sci(DBm(r.Power)),
			sci(DBuVPerCm(r.Field)),
			sci(r.ReflectionMagnitude),
			sci(r.InterferenceMagnitude),
			fmt.Sprintf("%d", s.Fresnel),
		})
	}
	return t
}

// Metadata describes the link and horizon of calc, one "key: value" line
// each.
func Metadata(calc core.Calculation) []string {
	l, req := calc.Link, calc.Request
	return []string{
		fmt.Sprintf("f: %.2f MHz", l.FrequencyHz/1e6),
		fmt.Sprintf("ht: %.1f m", req.TxHeight),
		fmt.Sprintf("hr: %.1f m", req.RxHeight),
		fmt.Sprintf("Pt: %.2f W", l.TxPowerW),
		fmt.Sprintf("K: %.3f", l.EarthRadiusFactor),
		fmt.Sprintf("hrms: %.2f m", l.RoughnessM),
		fmt.Sprintf("con: %.1e S/m", l.Conductivity),
		fmt.Sprintf("perm_r: %.0f", l.Permittivity),
		fmt.Sprintf("Pol: %s", l.Polarization),
		fmt.Sprintf("Ant: %s", l.Antenna),
		fmt.Sprintf("Rad hor: %.1f km", calc.State.Horizon/1000),
	}
}

// HeightMetadata is Metadata plus the fixed distance of the height sweep.
func HeightMetadata(calc core.Calculation) []string {
	return append(Metadata(calc), fmt.Sprintf("d: %.1f km", calc.Height.Distance/1000))
}

// WriteCSV writes the metadata block followed by t. The block is framed by
// _metadata_start and _metadata_end rows and begins with a UTC timestamp.
func WriteCSV(w io.Writer, meta []string, t Table, now time.Time) error {
	cw := csv.NewWriter(w)
	rows := [][]string{{"_metadata_start"}, {"Timestamp", now.UTC().Format(time.RFC3339)}}
	for _, line := range meta {
		rows = append(rows, []string{line})
	}
	rows = append(rows, []string{"_metadata_end"}, t.Headers)
	rows = append(rows, t.Rows...)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteDistanceCSV exports the distance table of calc.
func WriteDistanceCSV(w io.Writer, calc core.Calculation, now time.Time) error {
	return WriteCSV(w, Metadata(calc), DistanceTable(calc), now)
}

// WriteHeightCSV exports the height table of calc.
func WriteHeightCSV(w io.Writer, calc core.Calculation, now time.Time) error {
	return WriteCSV(w, HeightMetadata(calc), HeightTable(calc), now)
}

// WriteText renders t as tab-aligned columns.
func WriteText(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	writeRow := func(cells []string) {
		for _, c := range cells {
			fmt.Fprintf(tw, "%s\t", c)
		}
		fmt.Fprintln(tw)
	}
	writeRow(t.Headers)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return tw.Flush()
}
