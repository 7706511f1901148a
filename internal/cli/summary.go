package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
	"github.com/RyanBlaney/sonido-delivery/delivery"
)

// risingSlope is the EOS slope (Hz/s) above which an ending reads as a
// question or uncertainty.
const risingSlope = 20.0

func row(key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, KeyStyle.Render(key), ValueStyle.Render(value))
}

func optional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// RenderSummary formats a report for the terminal.
func RenderSummary(name string, r *delivery.Report) string {
	var sb strings.Builder

	sb.WriteString(TitleStyle.Render("Delivery report: " + name))
	sb.WriteString("\n")
	sb.WriteString(row("Duration", fmt.Sprintf("%.1f s", r.DurationSec)))
	sb.WriteString("\n")

	// Energy
	sb.WriteString(SectionStyle.Render("Energy"))
	sb.WriteString("\n")
	sb.WriteString(row("Variability", optional(r.Variability, "%.2f")))
	sb.WriteString("\n")
	sb.WriteString(row("Emphasis hotspots", fmt.Sprintf("%d", len(r.Hotspots))))
	sb.WriteString("\n")
	for _, h := range r.Hotspots {
		label := HintStyle.Render("unlabelled")
		if h.Label != nil {
			label = *h.Label
		}
		sb.WriteString(row("", fmt.Sprintf("%5.2f–%5.2f s  %s", h.StartSec, h.EndSec, label)))
		sb.WriteString("\n")
	}

	// Pitch
	sb.WriteString(SectionStyle.Render("Pitch"))
	sb.WriteString("\n")
	sb.WriteString(row("Range", optional(r.Pitch.RangeHz, "%.1f Hz")))
	sb.WriteString("\n")
	sb.WriteString(row("Variance", optional(r.Pitch.VarianceHz2, "%.1f Hz²")))
	sb.WriteString("\n")
	sb.WriteString(row("Monotony index", optional(r.Pitch.MonotonyIndex, "%.3f")))
	sb.WriteString("\n")
	sb.WriteString(row("Voiced samples", fmt.Sprintf("%d", r.Pitch.ValidCount)))
	sb.WriteString("\n")

	if !r.HasTimestamps() {
		sb.WriteString(HintStyle.Render("No word timestamps: pauses, pacing and sentence endings skipped."))
		sb.WriteString("\n")
	} else {
		rising := 0
		for _, seg := range r.EOSSegments {
			if seg.SlopeHzPerSec > risingSlope {
				rising++
			}
		}
		sb.WriteString(row("Sentence endings", fmt.Sprintf("%d measured, %d rising", len(r.EOSSegments), rising)))
		sb.WriteString("\n")

		// Rhythm
		p := r.Pauses
		sb.WriteString(SectionStyle.Render("Rhythm"))
		sb.WriteString("\n")
		sb.WriteString(row("Average gap", fmt.Sprintf("%.2f s (median %.2f s)", p.AvgGapSec, p.MedianGapSec)))
		sb.WriteString("\n")
		sb.WriteString(row("Pauses", fmt.Sprintf("%d medium, %d long", p.MediumCount, p.LongCount)))
		sb.WriteString("\n")
		sb.WriteString(row("Pause ratio", fmt.Sprintf("%.1f%%", p.RatioPercent)))
		sb.WriteString("\n")
		sb.WriteString(row("Talk / silence", fmt.Sprintf("%.1f s / %.1f s", p.TotalTalkSec, p.TotalPauseSec)))
		sb.WriteString("\n")
		sb.WriteString(row("Tempo std dev", fmt.Sprintf("%.2f words/s", r.TempoStdDevWps)))
		sb.WriteString("\n")

		if len(r.WPMTimeline) > 0 {
			wpm := make([]float64, len(r.WPMTimeline))
			peak := 0.0
			for i, pt := range r.WPMTimeline {
				wpm[i] = pt.WPM
				peak = max(peak, pt.WPM)
			}
			sb.WriteString(row("Words per minute", fmt.Sprintf("%.0f avg, %.0f peak", common.Mean(wpm), peak)))
			sb.WriteString("\n")
		}
	}

	// Fillers
	sb.WriteString(SectionStyle.Render("Fillers"))
	sb.WriteString("\n")
	sb.WriteString(row("Total", fmt.Sprintf("%d", r.Fillers.Total)))
	sb.WriteString("\n")
	if r.Fillers.MostCommon != nil {
		sb.WriteString(row("Most common", fmt.Sprintf("%q (%d)", *r.Fillers.MostCommon, r.Fillers.ByType[*r.Fillers.MostCommon])))
		sb.WriteString("\n")
	}

	return sb.String()
}
