package usecase

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"LeetTracker/internal/domain"
)

func renderReport(report Report, problemBaseURL string) string {
	date := domain.FormatDay(report.Day)

	if report.Empty() {
		if report.Label == "" {
			return fmt.Sprintf("<b>%s</b>: Nobody solved any problems.", date)
		}
		return fmt.Sprintf("<b>%s</b>: %s nobody solved any problems.", date, report.Label)
	}

	var b strings.Builder
	if report.Label == "" {
		fmt.Fprintf(&b, "<b>%s: Solved problems:</b>\n", date)
	} else {
		fmt.Fprintf(&b, "<b>%s: %s solved problems:</b>\n", date, report.Label)
	}

	for _, group := range report.Groups {
		fmt.Fprintf(&b, "\n<b>%s</b>:\n", html.EscapeString(group.DisplayName))
		for _, item := range group.Items {
			fmt.Fprintf(&b, "   • <a href=\"%s\">%s</a> (%s %s)\n",
				html.EscapeString(problemURL(problemBaseURL, item.ItemKey)),
				html.EscapeString(item.Title),
				item.Difficulty.Marker(),
				item.Difficulty)
		}
	}

	return b.String()
}

func problemURL(base, slug string) string {
	return strings.TrimSuffix(base, "/") + "/" + url.PathEscape(slug) + "/"
}
