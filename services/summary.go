package services

import (
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"itinerary-scraper/models"
)

// SummaryRow is one (target, source) line of the run summary.
type SummaryRow struct {
	Business      string
	Source        models.SourceID
	Discovered    int
	Saved         int
	HTTPErrors    int
	NetworkErrors int
	Timeouts      int
	DiscoveryErr  string
}

// Failed is the number of attempted downloads that did not save.
func (r SummaryRow) Failed() int {
	return r.HTTPErrors + r.NetworkErrors + r.Timeouts
}

// Summarize breaks a manifest down per source, in the order the sources ran.
func Summarize(m *models.Manifest) []SummaryRow {
	rows := make([]SummaryRow, 0, len(m.Sources))
	for _, s := range m.Sources {
		row := SummaryRow{
			Business:     m.Target.BusinessName,
			Source:       s.Source,
			Discovered:   s.Discovered,
			DiscoveryErr: s.Error,
		}
		for _, r := range m.ResultsFor(s.Source) {
			switch r.Outcome {
			case models.OutcomeSaved:
				row.Saved++
			case models.OutcomeHTTPError:
				row.HTTPErrors++
			case models.OutcomeTimeout:
				row.Timeouts++
			default:
				row.NetworkErrors++
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// PrintSummary renders a table of every manifest's per-source results to w.
// Rows with a discovery error are red, rows that saved nothing are yellow.
func PrintSummary(w io.Writer, manifests []*models.Manifest) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Business", "Source", "Found", "Saved", "HTTP", "Network", "Timeout", "Discovery error"})

	red := tablewriter.Colors{tablewriter.Normal, tablewriter.FgRedColor}
	yellow := tablewriter.Colors{tablewriter.Normal, tablewriter.FgYellowColor}

	var total SummaryRow
	for _, m := range manifests {
		for _, s := range Summarize(m) {
			row := []string{
				s.Business,
				string(s.Source),
				strconv.Itoa(s.Discovered),
				strconv.Itoa(s.Saved),
				strconv.Itoa(s.HTTPErrors),
				strconv.Itoa(s.NetworkErrors),
				strconv.Itoa(s.Timeouts),
				truncate(s.DiscoveryErr, 40),
			}
			switch {
			case s.DiscoveryErr != "":
				table.Rich(row, rowColors(len(row), red))
			case s.Saved == 0:
				table.Rich(row, rowColors(len(row), yellow))
			default:
				table.Append(row)
			}
			total.Discovered += s.Discovered
			total.Saved += s.Saved
			total.HTTPErrors += s.HTTPErrors
			total.NetworkErrors += s.NetworkErrors
			total.Timeouts += s.Timeouts
		}
	}

	table.SetFooter([]string{
		"total", "",
		strconv.Itoa(total.Discovered),
		strconv.Itoa(total.Saved),
		strconv.Itoa(total.HTTPErrors),
		strconv.Itoa(total.NetworkErrors),
		strconv.Itoa(total.Timeouts),
		"",
	})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	table.SetBorder(false)
	table.Render()
}

// PrintHistory renders the saved-image count per business across all
// recorded runs, sorted by business name.
func PrintHistory(w io.Writer, saved map[string]int) {
	businesses := make([]string, 0, len(saved))
	for b := range saved {
		businesses = append(businesses, b)
	}
	sort.Strings(businesses)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Business", "Saved (all runs)"})
	total := 0
	for _, b := range businesses {
		table.Append([]string{b, strconv.Itoa(saved[b])})
		total += saved[b]
	}
	table.SetFooter([]string{"total", strconv.Itoa(total)})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetBorder(false)
	table.Render()
}

func rowColors(n int, c tablewriter.Colors) []tablewriter.Colors {
	out := make([]tablewriter.Colors, n)
	for i := range out {
		out[i] = c
	}
	return out
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
