// Package exports renders shift schedules as iCalendar, CSV, XLSX, HTML and
// plain text.
package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/angelmondragon/socshift-backend/pkg/dates"
	"github.com/angelmondragon/socshift-backend/pkg/db/models"
)

// Dataset is everything a renderer needs.
type Dataset struct {
	Start       string
	End         string
	Shifts      []models.Shift
	Users       map[string]string
	Config      models.ShiftConfiguration
	Location    *time.Location
	GeneratedAt time.Time
}

// Row is one shift flattened for tabular formats.
type Row struct {
	ID       string
	Date     string
	Weekday  string
	Type     string
	UserID   string
	UserName string
	Start    time.Time
	End      time.Time
	Lunch    string
	Break    string
	Manual   bool
}

var header = []string{"Date", "Weekday", "Shift", "User ID", "User", "Start", "End", "Lunch", "Break", "Manual"}

// Rows flattens the shifts in dataset order. Start and End come from the
// configured window for the shift type; an end at or before the start falls
// on the next day.
func (d Dataset) Rows() []Row {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	out := make([]Row, 0, len(d.Shifts))
	for _, s := range d.Shifts {
		window := d.Config.Window(s.Type)
		start, end := span(s.Date, window, loc)
		weekday := ""
		if wd, err := dates.Weekday(s.Date); err == nil {
			weekday = wd.String()
		}
		name := d.Users[s.UserID]
		if name == "" {
			name = s.UserID
		}
		out = append(out, Row{
			ID:       s.ID,
			Date:     s.Date,
			Weekday:  weekday,
			Type:     string(s.Type),
			UserID:   s.UserID,
			UserName: name,
			Start:    start,
			End:      end,
			Lunch:    s.LunchStart + "-" + s.LunchEnd,
			Break:    s.BreakStart + "-" + s.BreakEnd,
			Manual:   s.ManuallyCreated,
		})
	}
	return out
}

func span(day string, w models.ShiftWindow, loc *time.Location) (time.Time, time.Time) {
	base, err := dates.Parse(day)
	if err != nil {
		return time.Time{}, time.Time{}
	}
	at := func(clock string) time.Time {
		t, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, loc)
		}
		return time.Date(base.Year(), base.Month(), base.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	}
	start, end := at(w.Start), at(w.End)
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func (r Row) values(loc *time.Location) []string {
	return []string{
		r.Date,
		r.Weekday,
		r.Type,
		r.UserID,
		r.UserName,
		r.Start.In(loc).Format("15:04"),
		r.End.In(loc).Format("15:04"),
		r.Lunch,
		r.Break,
		strconv.FormatBool(r.Manual),
	}
}

func (d Dataset) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// WriteICS writes one VEVENT per shift with UTC times.
func WriteICS(w io.Writer, d Dataset) error {
	const stamp = "20060102T150405Z"
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\r\n") }

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//SOC Shift Scheduler//Shifts//EN")
	line("CALSCALE:GREGORIAN")
	line("METHOD:PUBLISH")
	for _, r := range d.Rows() {
		line("BEGIN:VEVENT")
		line("UID:" + r.ID)
		line("DTSTAMP:" + d.GeneratedAt.UTC().Format(stamp))
		line("DTSTART:" + r.Start.UTC().Format(stamp))
		line("DTEND:" + r.End.UTC().Format(stamp))
		line("SUMMARY:" + icsEscape(fmt.Sprintf("%s shift - %s", r.Type, r.UserName)))
		line("DESCRIPTION:" + icsEscape(fmt.Sprintf("Lunch %s\nBreak %s", r.Lunch, r.Break)))
		line("END:VEVENT")
	}
	line("END:VCALENDAR")
	_, err := io.WriteString(w, b.String())
	return err
}

var icsReplacer = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func icsEscape(s string) string {
	return icsReplacer.Replace(s)
}

// WriteCSV writes a header and one record per shift.
func WriteCSV(w io.Writer, d Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	loc := d.loc()
	for _, r := range d.Rows() {
		if err := cw.Write(r.values(loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Shifts"

// WriteXLSX writes the CSV columns into a single worksheet.
func WriteXLSX(w io.Writer, d Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return err
	}

	loc := d.loc()
	for i, r := range d.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.values(loc)
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		row[len(row)-1] = r.Manual
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "J", 14); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// Markdown summarises the schedule per day.
func Markdown(d Dataset) string {
	var b strings.Builder
	rows := d.Rows()
	fmt.Fprintf(&b, "# Shift report\n\n")
	fmt.Fprintf(&b, "Period: **%s** to **%s**  \nShifts: **%d**  \nGenerated: %s\n\n",
		d.Start, d.End, len(rows), d.GeneratedAt.In(d.loc()).Format("2006-01-02 15:04 MST"))

	counts := map[string]int{}
	for _, r := range rows {
		counts[r.UserName]++
	}
	if len(counts) > 0 {
		b.WriteString("## Shifts per person\n\n| Person | Shifts |\n|---|---|\n")
		for _, name := range slices.Sorted(maps.Keys(counts)) {
			fmt.Fprintf(&b, "| %s | %d |\n", mdCell(name), counts[name])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Schedule\n\n")
	if len(rows) == 0 {
		b.WriteString("No shifts in this period.\n")
		return b.String()
	}
	b.WriteString("| Date | Day | Shift | Person | Hours | Lunch | Break |\n|---|---|---|---|---|---|---|\n")
	loc := d.loc()
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s-%s | %s | %s |\n",
			r.Date, r.Weekday, r.Type, mdCell(r.UserName),
			r.Start.In(loc).Format("15:04"), r.End.In(loc).Format("15:04"), r.Lunch, r.Break)
	}
	return b.String()
}

var mdReplacer = strings.NewReplacer("|", `\|`, "\n", " ")

func mdCell(s string) string {
	return mdReplacer.Replace(s)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// WriteHTML renders the markdown summary as a standalone HTML page. Raw HTML
// in user names is not rendered.
func WriteHTML(w io.Writer, d Dataset) error {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(d)), &body); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Shift report %s to %s</title>
<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:4px 8px}</style>
</head>
<body>
%s</body>
</html>
`, d.Start, d.End, body.String())
	return err
}

// WriteText writes a plain-text summary suitable for pasting into chat.
func WriteText(w io.Writer, d Dataset) error {
	var b strings.Builder
	fmt.Fprintf(&b, "SOC schedule %s to %s\n", d.Start, d.End)
	loc := d.loc()
	current := ""
	for _, r := range d.Rows() {
		if r.Date != current {
			current = r.Date
			fmt.Fprintf(&b, "\n%s (%s)\n", r.Date, r.Weekday)
		}
		fmt.Fprintf(&b, "  %-8s %s-%s  %s\n", r.Type, r.Start.In(loc).Format("15:04"), r.End.In(loc).Format("15:04"), r.UserName)
	}
	if current == "" {
		b.WriteString("\nNo shifts scheduled.\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
