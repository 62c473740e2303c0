package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/cibounipi/mensabot/internal/domain/entities"
)

// printPayload writes the body followed by one line per keyboard row, each
// action shown as "label <token>".
func printPayload(w io.Writer, payload entities.RenderPayload, showTokens bool) {
	fmt.Fprintln(w, payload.Body)
	if len(payload.Actions) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, row := range payload.Actions {
		cells := make([]string, 0, len(row))
		for _, action := range row {
			if showTokens {
				cells = append(cells, fmt.Sprintf("[%s <%s>]", action.Label, action.Token))
			} else {
				cells = append(cells, "["+action.Label+"]")
			}
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}

const colGap = 2

// renderTable aligns rows under headers with a separator line. Widths are
// measured in terminal cells so labels like "≤ € 27.000" stay aligned.
func renderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i < cols-1 {
				b.WriteString(runewidth.FillRight(cell, widths[i]+colGap))
			} else {
				b.WriteString(cell)
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	separators := make([]string, cols)
	for i, w := range widths {
		separators[i] = strings.Repeat("─", w)
	}
	writeRow(separators)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
