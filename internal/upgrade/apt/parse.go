package apt

import (
	"regexp"
	"strconv"

	"github.com/autopeer-io/installer/internal/upgrade"
)

var (
	progressRe   = regexp.MustCompile(`^Progress: \[\s*(\d{1,3})%\]`)
	unpackingRe  = regexp.MustCompile(`^Unpacking (\S+) \(([^)]*)\)(?: over \(([^)]*)\))?`)
	settingUpRe  = regexp.MustCompile(`^Setting up (\S+)`)
	processingRe = regexp.MustCompile(`^Processing triggers for (\S+)`)
)

// source tells which tool printed a line.
type source int

const (
	fromApt source = iota
	fromDpkg
)

// classifyStdout turns one line of standard output into an event. Lines
// that match no known dpkg status pattern are passed on verbatim.
func classifyStdout(line string, src source) upgrade.Event {
	if m := progressRe.FindStringSubmatch(line); m != nil {
		percent, _ := strconv.Atoi(m[1])
		if percent > 100 {
			percent = 100
		}
		return upgrade.PackageProgress{Percent: uint8(percent)}
	}
	if m := unpackingRe.FindStringSubmatch(line); m != nil {
		return upgrade.PackageUnpacking{Package: m[1], Version: m[2], Over: m[3]}
	}
	if m := settingUpRe.FindStringSubmatch(line); m != nil {
		return upgrade.PackageSettingUp{Package: m[1]}
	}
	if m := processingRe.FindStringSubmatch(line); m != nil {
		return upgrade.PackageProcessing{Package: m[1]}
	}

	if src == fromDpkg {
		return upgrade.DpkgInfo{Message: line}
	}
	return upgrade.UpgradeInfo{Message: line}
}

func classifyStderr(line string, src source) upgrade.Event {
	if src == fromDpkg {
		return upgrade.DpkgErr{Message: line}
	}
	return upgrade.UpgradeErr{Message: line}
}
