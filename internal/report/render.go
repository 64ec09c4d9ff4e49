package report

import (
	"fmt"
	"strings"
)

// Guidance returns the next step to suggest to the user for this report.
// Empty and Error reports get different advice.
func (r *Report) Guidance() string {
	switch r.Status {
	case StatusOK:
		if r.Mode == ModeManual {
			return "Sign set manually by the operator."
		}
		return "Signs identified. Follow the regulations listed above."
	case StatusEmpty:
		return "No traffic signs were found. Retake the photo closer to the sign or with better lighting."
	case StatusError:
		return "Sign detection failed. Try again, or set the sign manually with the override."
	default:
		return ""
	}
}

// Summary renders the report as plain text for terminals.
func (r *Report) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Report %s (%s, %s)\n", r.ID, r.Mode, r.Status)
	if r.Status == StatusError && r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}

	for i, rec := range r.Records {
		fmt.Fprintf(&b, "%d. %s (%.1f%%)", i+1, rec.Label, rec.Confidence*100)
		if rec.Box != nil {
			fmt.Fprintf(&b, " at %s", rec.Box)
		}
		if rec.Text != "" {
			fmt.Fprintf(&b, " text=%q", rec.Text)
		}
		b.WriteString("\n")
	}

	if len(r.Meanings) > 0 {
		b.WriteString("\nMeanings:\n")
		for _, label := range r.Labels() {
			fmt.Fprintf(&b, "  %s: %s\n", label, r.Meanings[label])
		}
	}

	fmt.Fprintf(&b, "\n%s\n", r.Guidance())
	return b.String()
}
