package upgrade

// Event is a progress notification produced by an Engine. The set of
// variants is closed: only types in this package implement it.
//
// String payloads are borrowed from the engine and are only valid while the
// emit call that carries them is running.
type Event interface {
	isEvent()
}

type (
	// AttemptingRepair is emitted before the engine tries to repair a
	// broken package state.
	AttemptingRepair struct{}

	// AttemptingUpgrade is emitted before each upgrade pass.
	AttemptingUpgrade struct{}

	// DpkgInfo is a line of dpkg standard output.
	DpkgInfo struct{ Message string }

	// DpkgErr is a line of dpkg standard error.
	DpkgErr struct{ Message string }

	// UpgradeInfo is a line of package manager standard output.
	UpgradeInfo struct{ Message string }

	// UpgradeErr is a line of package manager standard error.
	UpgradeErr struct{ Message string }

	// PackageProcessing reports trigger processing for a package.
	PackageProcessing struct{ Package string }

	// PackageProgress reports overall progress in percent.
	PackageProgress struct{ Percent uint8 }

	// PackageSettingUp reports that a package is being configured.
	PackageSettingUp struct{ Package string }

	// PackageUnpacking reports that Version of Package is replacing Over.
	PackageUnpacking struct {
		Package string
		Version string
		Over    string
	}

	// ResumingUpgrade is emitted when an interrupted upgrade is picked up.
	ResumingUpgrade struct{}
)

func (AttemptingRepair) isEvent()  {}
func (AttemptingUpgrade) isEvent() {}
func (DpkgInfo) isEvent()          {}
func (DpkgErr) isEvent()           {}
func (UpgradeInfo) isEvent()       {}
func (UpgradeErr) isEvent()        {}
func (PackageProcessing) isEvent() {}
func (PackageProgress) isEvent()   {}
func (PackageSettingUp) isEvent()  {}
func (PackageUnpacking) isEvent()  {}
func (ResumingUpgrade) isEvent()   {}
