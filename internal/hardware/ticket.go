package hardware

import (
	"fmt"
	"strings"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

const ticketRule = "================================"

// RenderTicketText lays out the printed entry ticket. Operator-facing text
// is Indonesian, matching the signage at the lanes.
func RenderTicketText(content domain.TicketContent) string {
	var b strings.Builder
	b.WriteString(ticketRule + "\n")
	b.WriteString(center(content.LotName) + "\n")
	b.WriteString(center("TIKET PARKIR") + "\n")
	b.WriteString(ticketRule + "\n")
	b.WriteString(fmt.Sprintf("NO TIKET : %s\n", content.TicketCode))
	b.WriteString(fmt.Sprintf("PLAT     : %s\n", content.Plate))
	b.WriteString(fmt.Sprintf("MASUK    : %s\n", content.EntryTime.Format("02-01-2006 15:04")))
	b.WriteString(ticketRule + "\n")
	b.WriteString("Simpan tiket ini dengan baik.\n")
	b.WriteString("Kehilangan tiket dikenakan denda.\n")
	b.WriteString(ticketRule + "\n")
	return b.String()
}

func center(s string) string {
	width := len(ticketRule)
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
