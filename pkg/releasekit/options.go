package releasekit

import (
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// ReleaseOptions is the superset of all release options. Not every project
// will use every option.
type ReleaseOptions struct {
	Name     string // app name, also the dmg volume name (eg: MyApp)
	Version  string // release version, semver
	BundleID string // bundle identifier (eg: com.example.myapp)

	Scheme        string   // xcode scheme to archive
	Configuration string   // xcode build configuration
	SDK           string   // xcode sdk
	BuildCommand  []string // non-Xcode build invocation, replaces xcodebuild
	WorkDir       string   // directory to build in

	SigningIdentity string // codesign identity, skip signing when empty
	Entitlements    string // path to an entitlements plist
	DeepSign        bool   // resign nested bundles

	AppleID       string // notarization apple id, skip notarization when empty
	ApplePassword string // app-specific password
	AppleTeamID   string // developer team id

	PollInterval    time.Duration // base wait between notarization polls
	MaxPollAttempts int           // poll budget before giving up

	GPGSigningKey string // key id for detached checksum signatures, skip when empty
	OutputPathDir string // where artifacts land, temp dir when empty
}

const (
	defaultPollInterval    = 30 * time.Second
	defaultMaxPollAttempts = 60
)

func (ro *ReleaseOptions) validate() error {
	if ro.Name == "" {
		return errors.New("release needs a name")
	}

	if ro.BundleID == "" {
		return errors.New("release needs a bundle identifier")
	}

	if _, err := semver.NewVersion(ro.Version); err != nil {
		return errors.Wrapf(err, "version %q is not semver", ro.Version)
	}

	return nil
}

func (ro *ReleaseOptions) pollInterval() time.Duration {
	if ro.PollInterval <= 0 {
		return defaultPollInterval
	}
	return ro.PollInterval
}

func (ro *ReleaseOptions) maxPollAttempts() int {
	if ro.MaxPollAttempts <= 0 {
		return defaultMaxPollAttempts
	}
	return ro.MaxPollAttempts
}
