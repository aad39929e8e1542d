package core

import (
	"testing"
)

func TestNextRepeatState(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{RepeatOff, RepeatContext},
		{RepeatContext, RepeatTrack},
		{RepeatTrack, RepeatOff},
		{"", RepeatOff},
		{"unknown", RepeatOff},
	}

	for _, tt := range tests {
		if got := NextRepeatState(tt.state); got != tt.want {
			t.Errorf("NextRepeatState(%q) = %q, expected %q", tt.state, got, tt.want)
		}
	}
}

func TestEntryRole_String(t *testing.T) {
	if RoleCurrent.String() != "current" || RoleQueued.String() != "queued" {
		t.Errorf("roles render as %q and %q", RoleCurrent, RoleQueued)
	}
}
