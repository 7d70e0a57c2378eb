package proto

import "testing"

func TestPrefixSplit(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		nick   string
		user   string
		host   string
	}{
		{
			name:   "full user prefix",
			prefix: "alice!~alice@host.example",
			nick:   "alice",
			user:   "~alice",
			host:   "host.example",
		},
		{
			name:   "nick and user only",
			prefix: "alice!~alice",
			nick:   "alice",
			user:   "~alice",
		},
		{
			name:   "nick and host only",
			prefix: "alice@host.example",
			nick:   "alice",
			host:   "host.example",
		},
		{
			name:   "server prefix",
			prefix: "irc.example.org",
			nick:   "irc.example.org",
		},
		{
			name:   "empty prefix",
			prefix: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{Prefix: tt.prefix}
			if got := m.Nick(); got != tt.nick {
				t.Errorf("Nick() = %q, want %q", got, tt.nick)
			}
			if got := m.User(); got != tt.user {
				t.Errorf("User() = %q, want %q", got, tt.user)
			}
			if got := m.Host(); got != tt.host {
				t.Errorf("Host() = %q, want %q", got, tt.host)
			}
		})
	}
}

func TestParamAccess(t *testing.T) {
	m := New(CmdKick, "#chan", "victim", "reason here")
	if got := m.Param(0); got != "#chan" {
		t.Errorf("Param(0) = %q", got)
	}
	if got := m.Param(2); got != "reason here" {
		t.Errorf("Param(2) = %q", got)
	}
	if got := m.Param(5); got != "" {
		t.Errorf("Param(5) = %q, want empty", got)
	}
	if got := m.Param(-1); got != "" {
		t.Errorf("Param(-1) = %q, want empty", got)
	}
}
