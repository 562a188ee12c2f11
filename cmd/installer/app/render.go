package app

import (
	"fmt"
	"io"

	"github.com/autopeer-io/installer/internal/upgrade"
)

// newEventPrinter renders each upgrade event as one line on out. Payloads
// are copied out of the envelope before the sink returns.
func newEventPrinter(out io.Writer) upgrade.EventSink {
	return upgrade.EventSinkFunc(func(env upgrade.Envelope) {
		fmt.Fprintln(out, formatEnvelope(env))
	})
}

func formatEnvelope(env upgrade.Envelope) string {
	s := env.Strings()
	switch env.Tag {
	case upgrade.TagAttemptingRepair:
		return "==> attempting repair"
	case upgrade.TagAttemptingUpgrade:
		return "==> attempting upgrade"
	case upgrade.TagResumingUpgrade:
		return "==> resuming upgrade"
	case upgrade.TagDpkgInfo:
		return "dpkg: " + s[0]
	case upgrade.TagDpkgErr:
		return "dpkg error: " + s[0]
	case upgrade.TagUpgradeInfo:
		return s[0]
	case upgrade.TagUpgradeErr:
		return "error: " + s[0]
	case upgrade.TagPackageProcessing:
		return "processing triggers for " + s[0]
	case upgrade.TagPackageProgress:
		return fmt.Sprintf("progress: %d%%", env.Percent)
	case upgrade.TagPackageSettingUp:
		return "setting up " + s[0]
	case upgrade.TagPackageUnpacking:
		if env.Str3.Present() && s[2] != "" {
			return fmt.Sprintf("unpacking %s %s over %s", s[0], s[1], s[2])
		}
		return fmt.Sprintf("unpacking %s %s", s[0], s[1])
	default:
		return env.Tag.String()
	}
}
