package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// frameProgress renders decoding progress. The bar is created on the first
// frame, once the container's frame count is known.
type frameProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newFrameProgress(out io.Writer) *frameProgress {
	return &frameProgress{out: out}
}

func (p *frameProgress) update(done, total int) {
	if p.bar == nil {
		limit := total
		if limit <= 0 {
			limit = -1
		}
		p.bar = progressbar.NewOptions(limit,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Decoding"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}

	// Containers may under-report their frame count.
	if total > 0 && done > total && p.bar.GetMax() < done {
		p.bar.ChangeMax(done)
	}
	_ = p.bar.Set(done)
}

func (p *frameProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
