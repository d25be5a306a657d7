package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"MomentumDashboard/internal/signal"
)

// FormatRunSummary formats the outcome of one dashboard run.
func FormatRunSummary(s signal.Summary, output string, at time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Momentum Dashboard</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Rows written: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Report: <code>%s</code>\n", html.EscapeString(output)))

	if len(s.Up) > 0 {
		b.WriteString(fmt.Sprintf("\n📈 <b>All anchors up:</b> %s\n", tickers(s.Up)))
	}
	if len(s.Down) > 0 {
		b.WriteString(fmt.Sprintf("\n📉 <b>All anchors down:</b> %s\n", tickers(s.Down)))
	}

	if len(s.Unresolved) > 0 {
		names := make([]string, 0, len(s.Unresolved))
		for t := range s.Unresolved {
			names = append(names, t)
		}
		sort.Strings(names)
		b.WriteString("\n⚠️ <b>No close found:</b>\n")
		for _, t := range names {
			months := make([]string, len(s.Unresolved[t]))
			for i, m := range s.Unresolved[t] {
				months[i] = fmt.Sprintf("%dmo", m)
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", html.EscapeString(t), strings.Join(months, ", ")))
		}
	}
	return b.String()
}

// FormatFailure formats a failed run.
func FormatFailure(err error, at time.Time) string {
	return fmt.Sprintf("❌ <b>Momentum Dashboard run failed</b> | %s\n\n%s",
		at.Format("2006-01-02 15:04"), html.EscapeString(err.Error()))
}

// FormatHelp lists the commands understood in watch mode.
func FormatHelp() string {
	return "Commands:\n• /run  regenerate the report now\n• /status  last run summary"
}

func tickers(list []string) string {
	escaped := make([]string, len(list))
	for i, t := range list {
		escaped[i] = html.EscapeString(t)
	}
	return strings.Join(escaped, ", ")
}
