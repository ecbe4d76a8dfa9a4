package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"photoscrub/core"
)

var (
	styleTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7")).Bold(true)
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A")).Bold(true)
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0AF68")).Bold(true)
	styleErr   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7768E")).Bold(true)
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("#565F89"))
)

var riskStyles = map[core.RiskLevel]lipgloss.Style{
	core.RiskNone:   styleDim,
	core.RiskLow:    styleOK,
	core.RiskMedium: styleWarn,
	core.RiskHigh:   styleErr,
}

// riskBadge renders a colored risk label.
func riskBadge(r core.RiskLevel) string {
	return riskStyles[r].Render(strings.ToUpper(r.String()))
}

func okSymbol() string   { return styleOK.Render("[✓]") }
func warnSymbol() string { return styleWarn.Render("[!]") }

var divider = styleDim.Render(strings.Repeat("─", 48))

// spinWhile shows a spinner while fn runs, then clears the line.
func spinWhile(label string, fn func() error) error {
	s := spinner.New(spinner.WithSpinner(spinner.Meter))
	ticker := time.NewTicker(s.Spinner.FPS)
	defer ticker.Stop()

	done := make(chan struct{})
	errc := make(chan error, 1)

	go func() {
		frame := 0
		frames := s.Spinner.Frames
		for {
			select {
			case <-ticker.C:
				fmt.Printf("\r%s %s", styleTitle.Render(frames[frame]), label)
				frame = (frame + 1) % len(frames)
			case <-done:
				return
			}
		}
	}()

	go func() { errc <- fn() }()

	err := <-errc
	close(done)
	fmt.Print("\r\x1b[2K")
	return err
}
