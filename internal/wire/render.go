package wire

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/victornm/icpcboard/internal/domain"
)

func renderScoreboard(w io.Writer, sb *domain.Scoreboard) {
	for _, row := range sb.Rows {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %d %d %d", row.Team, row.Rank, row.Solved, row.Penalty)
		for _, c := range row.Cells {
			b.WriteByte(' ')
			b.WriteString(renderCell(c))
		}
		fmt.Fprintln(w, b.String())
	}
}

// renderCell produces the four-way problem encoding: solved (with optional
// wrong count), frozen-pending (wrong count over hidden attempts), or plain
// unsolved (wrong count or the all-clear dot).
func renderCell(c domain.ProblemCell) string {
	switch {
	case c.Solved && c.Wrong == 0:
		return "+"
	case c.Solved:
		return "+" + strconv.Itoa(c.Wrong)
	case c.Pending && c.Wrong == 0:
		return "0/" + strconv.Itoa(c.HiddenAttempts)
	case c.Pending:
		return "-" + strconv.Itoa(c.Wrong) + "/" + strconv.Itoa(c.HiddenAttempts)
	case c.Wrong == 0:
		return "."
	default:
		return "-" + strconv.Itoa(c.Wrong)
	}
}
