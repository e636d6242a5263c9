package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_AdmitsExactlyLimitThenDenies(t *testing.T) {
	l := New(3, time.Minute)
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		assert.True(t, l.AllowAt("get_issue", base.Add(time.Duration(i)*time.Second)), "call %d should be admitted", i+1)
	}
	assert.False(t, l.AllowAt("get_issue", base.Add(4*time.Second)), "4th call within window must be denied")
}

func TestAllow_WindowSlidesOutExpiredEntries(t *testing.T) {
	l := New(2, time.Minute)
	base := time.Unix(1_700_000_000, 0)

	assert.True(t, l.AllowAt("log_work", base))
	assert.True(t, l.AllowAt("log_work", base.Add(10*time.Second)))
	assert.False(t, l.AllowAt("log_work", base.Add(20*time.Second)))

	// Once the first call falls outside the 60s window, a new slot opens up.
	assert.True(t, l.AllowAt("log_work", base.Add(61*time.Second)))
}

func TestAllow_IsPerToolIndependent(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.AllowAt("create_issue", now))
	assert.True(t, l.AllowAt("update_issue", now))
	assert.False(t, l.AllowAt("create_issue", now.Add(time.Second)))
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.AllowAt("add_comment", now))
	assert.False(t, l.AllowAt("add_comment", now.Add(time.Second)))
	l.Reset("add_comment")
	assert.True(t, l.AllowAt("add_comment", now.Add(2*time.Second)))
}

func TestCount(t *testing.T) {
	l := New(5, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	assert.Equal(t, 0, l.Count("list_issues"))
	l.AllowAt("list_issues", now)
	l.AllowAt("list_issues", now.Add(time.Second))
	assert.Equal(t, 2, l.Count("list_issues"))
}
