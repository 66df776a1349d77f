package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chararch/bulkop"
	"github.com/chararch/bulkop/status"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const barWidth = 30

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

func icon(st status.ItemStatus) string {
	switch st {
	case status.PROCESSING:
		return warnStyle.Render("…")
	case status.RETRYING:
		return warnStyle.Render("↻")
	case status.COMPLETED:
		return okStyle.Render("✓")
	case status.ERROR:
		return errStyle.Render("✗")
	}
	return mutedStyle.Render("·")
}

func recordLine(rec bulkop.ProcessingRecord) string {
	line := fmt.Sprintf("%s %s %s", icon(rec.Status), rec.Label, mutedStyle.Render(strings.ToLower(string(rec.Status))))
	if rec.Error != "" {
		line += " " + errStyle.Render(rec.Error)
	}
	return line
}

func progressLine(bar progress.Model, p bulkop.Progress) string {
	line := fmt.Sprintf("%s %d/%d", bar.ViewAs(p.PercentComplete/100), p.Finished(), p.Total)
	if p.Errors > 0 {
		line += errStyle.Render(fmt.Sprintf(" %d failed", p.Errors))
	}
	if p.Finished() < p.Total {
		line += mutedStyle.Render(fmt.Sprintf(" ETA %s", p.EstimatedRemaining.Round(time.Second)))
	}
	return line
}

// console observer printing item transitions and a progress bar
type console struct {
	mu        sync.Mutex
	out       io.Writer
	bar       progress.Model
	last      map[int]status.ItemStatus
	finished  int
	cancelled bool
}

func newConsole(out io.Writer) *console {
	return &console{
		out:  out,
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		last: make(map[int]status.ItemStatus),
	}
}

func (c *console) OnProgress(snap *bulkop.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range snap.Records {
		if prev, ok := c.last[rec.Index]; ok && prev == rec.Status {
			continue
		}
		c.last[rec.Index] = rec.Status
		if rec.Status == status.PENDING {
			continue
		}
		fmt.Fprintln(c.out, recordLine(rec))
	}
	if f := snap.Progress.Finished(); f != c.finished {
		c.finished = f
		fmt.Fprintln(c.out, progressLine(c.bar, snap.Progress))
	}
	if snap.Cancelling && !c.cancelled {
		c.cancelled = true
		fmt.Fprintln(c.out, warnStyle.Render("cancelling, the current item will finish first"))
	}
}

func (c *console) violations(list []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, errStyle.Render(fmt.Sprintf("%d validation error(s), nothing was processed:", len(list))))
	for _, v := range list {
		fmt.Fprintf(c.out, "  %s\n", v)
	}
}

func (c *console) summary(snap *bulkop.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	writeSummary(c.out, snap)
}

func writeSummary(out io.Writer, snap *bulkop.Snapshot) {
	summary := snap.Progress.Summary()
	switch {
	case snap.Cancelled:
		fmt.Fprintln(out, warnStyle.Render("cancelled: "+summary))
	case snap.Progress.Errors > 0:
		fmt.Fprintln(out, errStyle.Render(summary))
	default:
		fmt.Fprintln(out, okStyle.Render(summary))
	}
	if ids := snap.TimedOut(); len(ids) > 0 {
		fmt.Fprintln(out, warnStyle.Render("timed out, the remote outcome is unknown, check before retrying: "+strings.Join(ids, ", ")))
	}
}

// renderSnapshot full view of a stored or live run
func renderSnapshot(out io.Writer, snap *bulkop.Snapshot) {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s %s", snap.Name, snap.RunID)))
	fmt.Fprintf(out, "phase: %s, created: %s\n", snap.Phase, snap.CreateTime.Format(time.RFC3339))
	for _, v := range snap.Violations {
		fmt.Fprintf(out, "  %s\n", errStyle.Render(v))
	}
	for _, rec := range snap.Records {
		fmt.Fprintln(out, recordLine(rec))
	}
	fmt.Fprintln(out, progressLine(bar, snap.Progress))
	writeSummary(out, snap)
}
