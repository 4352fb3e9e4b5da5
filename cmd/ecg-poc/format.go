package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/dedent"
	"github.com/raine/ecg-analyzer/internal/capture"
	"github.com/raine/ecg-analyzer/internal/ecg"
)

var severityColors = map[ecg.Severity]lipgloss.Color{
	ecg.SeverityBenign:   lipgloss.Color("42"),
	ecg.SeverityCaution:  lipgloss.Color("214"),
	ecg.SeverityCritical: lipgloss.Color("196"),
	ecg.SeverityUnknown:  lipgloss.Color("245"),
}

var labelStyle = lipgloss.NewStyle().Bold(true)

func levelStyle(level ecg.ArrhythmiaLevel) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(severityColors[level.Severity()])
}

func formatResult(img *capture.Image, result *ecg.AnalysisResult) string {
	header := fmt.Sprintf(strings.TrimSpace(dedent.Dedent(`
		%s %s (%s, %d bytes)
		%s %s
		%s %s
	`)),
		labelStyle.Render("Image:"), img.Name, img.MIMEType, img.Size(),
		labelStyle.Render("Level:"), levelStyle(result.ArrhythmiaLevel).Render(string(result.ArrhythmiaLevel)),
		labelStyle.Render("Summary:"), result.Summary,
	)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Metrics:"))
	if len(result.Metrics) == 0 {
		b.WriteString(" (none)")
	}
	for _, m := range result.Metrics {
		fmt.Fprintf(&b, "\n  - %s: %s", m.Name, m.Value)
		if m.Interpretation != "" {
			fmt.Fprintf(&b, " (%s)", m.Interpretation)
		}
	}
	return b.String()
}
