package notify

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/pranshuparmar/procalert/internal/proc"
	"github.com/pranshuparmar/procalert/pkg/model"
)

// Desktop shows notifications through the operating system's notification
// center.
type Desktop struct {
	goos string
}

// NewDesktop returns a desktop notifier for the running OS.
func NewDesktop() (*Desktop, error) {
	return newDesktop(runtime.GOOS)
}

func newDesktop(goos string) (*Desktop, error) {
	switch goos {
	case "linux", "freebsd", "darwin":
		return &Desktop{goos: goos}, nil
	default:
		return nil, fmt.Errorf("desktop notifications are not supported on %s", goos)
	}
}

func (d *Desktop) Name() string {
	return "desktop"
}

func (d *Desktop) Notify(ctx context.Context, n model.Notification) error {
	var err error
	if d.goos == "darwin" {
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(n.Body), appleScriptString(n.Title))
		_, err = proc.Run(ctx, "osascript", "-e", script)
	} else {
		_, err = proc.Run(ctx, "notify-send", "--app-name=procalert", "--urgency=normal", n.Title, n.Body)
	}
	if err != nil {
		return fmt.Errorf("show desktop notification: %w", err)
	}
	return nil
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func appleScriptString(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}
