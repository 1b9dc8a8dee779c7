package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/ancients-collective/sshcheck/internal/types"
)

const reportRuleWidth = 70

// WriteReport writes the plain-text report file: a header, every result in
// catalog order and the scored summary. No colour codes are emitted.
func WriteReport(w io.Writer, report *types.ScanReport) error {
	bw := bufio.NewWriter(w)
	heavy := strings.Repeat("=", reportRuleWidth)
	light := strings.Repeat("-", reportRuleWidth)

	bw.WriteString("SSH SECURITY CHECK REPORT\n")
	bw.WriteString(heavy + "\n")
	bw.WriteString("Generated: " + report.Timestamp.Format("2006-01-02 15:04:05") + "\n")
	bw.WriteString("Config File: " + report.ConfigPath + "\n")
	if report.System.Hostname != "" {
		bw.WriteString("Host: " + report.System.Hostname + "\n")
	}
	bw.WriteString("\nSECURITY CHECKS:\n")
	bw.WriteString(light + "\n")

	rs := types.NewResultSet(report.Results...)
	for i, l := range Lines(rs) {
		if l.Indent == 0 && i > 0 {
			bw.WriteString("\n")
		}
		writePlainLine(bw, l)
	}
	if rs.Total() > 0 {
		bw.WriteString("\n")
	}

	bw.WriteString(heavy + "\n")
	bw.WriteString("SUMMARY:\n")
	for _, l := range SummaryLines(rs) {
		if strings.HasPrefix(l.Text, "Security Score:") || strings.HasPrefix(l.Text, "Overall Status:") {
			bw.WriteString("\n")
		}
		l.Indent = 1
		writePlainLine(bw, l)
	}
	return bw.Flush()
}

func writePlainLine(w io.StringWriter, l Line) {
	w.WriteString(strings.Repeat("  ", l.Indent) + l.Text + "\n")
}
