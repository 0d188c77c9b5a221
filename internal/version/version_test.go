package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrings(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })

	Version, GitCommit, BuildDate = "v0.3.0", "abc1234", "2026-10-18"

	assert.Equal(t, "v0.3.0 (abc1234)", String())
	assert.Equal(t, "v0.3.0", Short())
	assert.Equal(t, "v0.3.0 (abc1234) built 2026-10-18 with "+runtime.Version(), Full())
	assert.Equal(t, Info{Version: "v0.3.0", GitCommit: "abc1234", BuildDate: "2026-10-18", GoVersion: runtime.Version()}, GetInfo())
}

func TestUserAgent(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })
	Version = "dev"

	assert.Equal(t, "todoprobe/dev", UserAgent(""))
	assert.Equal(t, "Mozilla/5.0 todoprobe/dev", UserAgent("Mozilla/5.0"))
}
