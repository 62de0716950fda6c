package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/ftpsheep/ftpsheep/internal/models"
)

// UI renders deployment progress as a single overall bar on a TTY, falling
// back to plain line-by-line text on a non-TTY (piped output, CI logs).
// Progress is reported as one aggregated Snapshot rather than per-file
// transfer events, so a single bar covers the whole deployment.
type UI struct {
	progress   *mpb.Progress
	bar        *mpb.Bar
	isTerminal bool
}

// NewUI builds a UI. totalBytes may be 0 if unknown at construction time —
// the bar is still created and its total refreshed as uploads begin.
func NewUI(totalBytes int64) *UI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	u := &UI{progress: p, isTerminal: isTerminal}

	if isTerminal {
		u.bar = p.New(totalBytes,
			mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
			mpb.PrependDecorators(decor.Name("deploy ", decor.WCSyncSpace)),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
				decor.Name("  ETA ", decor.WCSyncWidth),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
		)
	}
	return u
}

// AsObserver adapts the UI onto the progress.Observer contract so it can be
// driven directly by Dispatch or wired straight into the Coordinator.
func (u *UI) AsObserver() Observer { return &uiObserver{u: u} }

type uiObserver struct{ u *UI }

func (o *uiObserver) OnStageChange(profile string, old, next models.DeploymentState) {
	if !o.u.isTerminal {
		fmt.Fprintf(os.Stderr, "[%s] %s -> %s\n", profile, old, next)
	}
}

func (o *uiObserver) OnProgress(profile string, snap Snapshot) {
	u := o.u
	if u.bar == nil {
		if !u.isTerminal {
			fmt.Fprintf(os.Stderr, "[%s] uploaded %d/%d files, %d/%d bytes\n",
				profile, snap.Completed, snap.TotalFiles, snap.UploadedBytes, snap.TotalBytes)
		}
		return
	}
	if u.bar.Current() == 0 && snap.TotalBytes > 0 {
		u.bar.SetTotal(snap.TotalBytes, false)
	}
	u.bar.SetCurrent(snap.UploadedBytes)
}

func (o *uiObserver) OnWarning(profile string, err error) {
	fmt.Fprintf(os.Stderr, "[%s] warning: %v\n", profile, err)
}

func (o *uiObserver) OnError(profile string, err error) {
	fmt.Fprintf(os.Stderr, "[%s] error: %v\n", profile, err)
}

func (o *uiObserver) OnComplete(profile string, success bool, err error) {
	u := o.u
	if u.bar != nil && !u.bar.Completed() {
		u.bar.Abort(false)
	}
	u.progress.Wait()
}

// Wait blocks until all bars have finished rendering; call after the
// deployment's terminal event.
func (u *UI) Wait() { u.progress.Wait() }
