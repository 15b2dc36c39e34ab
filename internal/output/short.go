package output

import (
	"fmt"
	"io"

	"github.com/pranshuparmar/procalert/pkg/model"
)

var (
	colorResetShort   = "\033[0m"
	colorMagentaShort = "\033[35m"
	colorDimShort     = "\033[2m"
)

// RenderShort prints the samples on a single line, e.g.
// "node 87.5% (pid 42) · Finder 3.2% (pid 456)".
func RenderShort(w io.Writer, samples []model.RawSample, colorEnabled bool) {
	for i, s := range samples {
		if i > 0 {
			if colorEnabled {
				fmt.Fprint(w, colorMagentaShort+" · "+colorResetShort)
			} else {
				fmt.Fprint(w, " · ")
			}
		}
		if colorEnabled {
			fmt.Fprintf(w, "%s %.1f%% (%spid %d%s)", s.Name, s.CPU, colorDimShort, s.PID, colorResetShort)
		} else {
			fmt.Fprintf(w, "%s %.1f%% (pid %d)", s.Name, s.CPU, s.PID)
		}
	}
	fmt.Fprintln(w)
}
