package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func frozenClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestControllerStartsDisabled(t *testing.T) {
	c := NewController()
	require.False(t, c.IsEnabled())
	require.False(t, c.ShouldTrack(c.CurrentVersion(), "", ""))
}

func TestEnableDisableBumpsVersionAndGatesTracking(t *testing.T) {
	c := NewController()
	c.Enable()
	require.True(t, c.IsEnabled())
	v1 := c.CurrentVersion()
	require.True(t, c.ShouldTrack(v1, "", ""))

	c.Disable()
	require.False(t, c.IsEnabled())
	require.False(t, c.ShouldTrack(v1, "", ""))
}

func TestDisablePermanentlyExcludesPinnedPreDisableVersions(t *testing.T) {
	// A version pinned before a Disable must never become trackable
	// again, even after a later Enable — this is the controller's core
	// temporal-gating guarantee.
	c := NewController()
	c.Enable()
	pinned := c.CurrentVersion()

	c.Disable()
	c.Enable()

	require.False(t, c.ShouldTrack(pinned, "", ""))
	require.True(t, c.ShouldTrack(c.CurrentVersion(), "", ""))
}

func TestReporterMustBeEnabledAtOrAfterItsActivationVersion(t *testing.T) {
	c := NewController()
	c.Enable()

	before := c.CurrentVersion()
	c.EnableReporter("csv")
	after := c.CurrentVersion()

	require.False(t, c.ShouldTrack(before, "csv", ""))
	require.True(t, c.ShouldTrack(after, "csv", ""))
}

func TestFilterGatingMirrorsReporterGating(t *testing.T) {
	c := NewController()
	c.Enable()
	c.EnableFilter("slow-calls")
	v := c.CurrentVersion()
	require.True(t, c.ShouldTrack(v, "", "slow-calls"))

	c.DisableFilter("slow-calls")
	require.False(t, c.ShouldTrack(c.CurrentVersion(), "", "slow-calls"))
}

func TestEnableRestoresLastIndividuallySetComponentFlags(t *testing.T) {
	c := NewController()
	c.Enable()
	c.EnableReporter("csv")
	c.DisableReporter("csv")
	require.False(t, c.IsReporterEnabled("csv"))

	// A bare global Disable/Enable cycle (with no explicit component
	// change in between) restores "csv" to its last individually-set
	// value, which is now false.
	c.Disable()
	c.Enable()
	require.False(t, c.IsReporterEnabled("csv"))

	c.EnableReporter("csv")
	c.Disable()
	c.Enable()
	require.True(t, c.IsReporterEnabled("csv"))
}

func TestEnableFilterForReporterType(t *testing.T) {
	c := NewController()
	require.False(t, c.IsFilterEnabledForReporterType("csv", "slow-calls"))
	c.EnableFilterForReporterType("csv", "slow-calls")
	require.True(t, c.IsFilterEnabledForReporterType("csv", "slow-calls"))
	require.False(t, c.IsFilterEnabledForReporterType("rantt", "slow-calls"))
}

func TestStateChangedCallbackFiresOnEveryFlip(t *testing.T) {
	c := NewController()
	var events []bool
	c.AddStateChangedCallback(func(kind ComponentKind, name ComponentKey, enabled bool, v Version) {
		events = append(events, enabled)
	})
	c.Enable()
	c.Disable()
	require.Equal(t, []bool{true, false}, events)
}

func TestVersionChangedCallbackFiresOnEveryBump(t *testing.T) {
	c := NewController()
	var versions []Version
	c.AddVersionChangedCallback(func(old, new_ Version) {
		versions = append(versions, new_)
	})
	c.Enable()
	c.EnableReporter("csv")
	require.Len(t, versions, 2)
	require.True(t, versions[0].Less(versions[1]))
}

func TestBeginOperationInvalidatesOnSubsequentVersionBump(t *testing.T) {
	c := NewController()
	c.Enable()

	scope, v := c.BeginOperation()
	require.True(t, scope.Valid())
	require.Equal(t, c.CurrentVersion(), v)

	c.EnableReporter("csv")
	require.False(t, scope.Valid())

	scope.Close()
}

func TestOperationScopeCloseIsIdempotentAndDetaches(t *testing.T) {
	c := NewController()
	scope, _ := c.BeginOperation()
	scope.Close()
	scope.Close() // must not panic or double count

	c.Enable() // should not touch the closed scope
	require.False(t, scope.Valid())
}

func TestResetClearsAllFlagsAndInvalidatesOpenScopes(t *testing.T) {
	now := time.Now()
	c := NewController(WithClock(frozenClock(&now)))
	c.Enable()
	c.EnableReporter("csv")
	c.EnableFilter("slow-calls")
	scope, _ := c.BeginOperation()

	c.Reset()

	require.False(t, c.IsEnabled())
	require.False(t, c.IsReporterEnabled("csv"))
	require.False(t, c.IsFilterEnabled("slow-calls"))
	require.False(t, scope.Valid())
	require.Equal(t, int64(0), c.CurrentVersion().Counter)
}

func TestShouldTrackRequiresBothReporterAndFilterWhenBothSupplied(t *testing.T) {
	c := NewController()
	c.Enable()
	c.EnableReporter("csv")
	v := c.CurrentVersion()

	require.False(t, c.ShouldTrack(v, "csv", "slow-calls"))
	c.EnableFilter("slow-calls")
	require.True(t, c.ShouldTrack(c.CurrentVersion(), "csv", "slow-calls"))
}
