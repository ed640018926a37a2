package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ScanProgress renders a progress bar while a directory scan runs.
type ScanProgress struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewScanProgress creates a progress reporter sized to totalFiles.
func NewScanProgress(quiet bool, totalFiles int) *ScanProgress {
	p := &ScanProgress{quiet: quiet}
	if quiet || totalFiles == 0 {
		return p
	}
	p.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
	return p
}

// OnFileProcessed advances the bar by one file.
func (p *ScanProgress) OnFileProcessed(fileName string) {
	if p.quiet || p.bar == nil {
		return
	}
	p.bar.Add(1)
}

// Finish closes out the bar.
func (p *ScanProgress) Finish() {
	if p.quiet || p.bar == nil {
		return
	}
	p.bar.Finish()
}
