package components

import (
	"fmt"
	"strings"

	"github.com/kerbaras/kindlize/pkg/app/styles"
	"github.com/kerbaras/kindlize/pkg/services"
)

// steps is the order a remote conversion walks through.
var steps = []services.Status{
	services.StatusAwaitingProgressKey,
	services.StatusUploading,
	services.StatusEncoding,
	services.StatusRecoding,
	services.StatusGenerating,
	services.StatusDownloading,
	services.StatusComplete,
}

type ProgressTracker struct {
	jobs  map[string]*services.ConversionProgress
	order []string
	width int
}

func NewProgressTracker(width int) *ProgressTracker {
	return &ProgressTracker{
		jobs:  make(map[string]*services.ConversionProgress),
		width: width,
	}
}

func (p *ProgressTracker) SetWidth(width int) {
	p.width = width
}

// Update records a transition. Completed jobs are dropped; failed ones
// stay so the error remains visible until Clear.
func (p *ProgressTracker) Update(progress services.ConversionProgress) {
	if progress.Status == services.StatusComplete {
		p.remove(progress.JobID)
		return
	}
	if _, ok := p.jobs[progress.JobID]; !ok {
		p.order = append(p.order, progress.JobID)
	}
	prog := progress
	p.jobs[progress.JobID] = &prog
}

func (p *ProgressTracker) remove(id string) {
	if _, ok := p.jobs[id]; !ok {
		return
	}
	delete(p.jobs, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *ProgressTracker) Clear() {
	p.jobs = make(map[string]*services.ConversionProgress)
	p.order = nil
}

// HasActive reports whether any job is still running.
func (p *ProgressTracker) HasActive() bool {
	for _, j := range p.jobs {
		if !j.Status.Terminal() {
			return true
		}
	}
	return false
}

func (p *ProgressTracker) View() string {
	if len(p.jobs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render("Conversions"))
	b.WriteString("\n")

	for _, id := range p.order {
		progress := p.jobs[id]
		b.WriteString(styles.TextStyle.Render(progress.Title))
		b.WriteString("\n")

		if step := stepIndex(progress.Status); step >= 0 {
			b.WriteString(renderProgressBar(step+1, len(steps), p.width-4))
			b.WriteString("\n")
		}

		statusText := string(progress.Status)
		if progress.Poll > 1 {
			statusText = fmt.Sprintf("%s (poll %d)", statusText, progress.Poll)
		}
		b.WriteString(styles.StatusStyle(string(progress.Status)).Render(statusText))
		b.WriteString("\n")

		if progress.Error != nil {
			b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", progress.Error)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func stepIndex(s services.Status) int {
	for i, step := range steps {
		if step == s {
			return i
		}
	}
	return -1
}

func renderProgressBar(current, total, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styles.ProgressBarStyle.Render(bar)
}
