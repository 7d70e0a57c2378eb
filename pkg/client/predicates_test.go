package client

import (
	"testing"

	"github.com/ircheck-project/ircheck-go/pkg/proto"
)

func mustParse(t *testing.T, line string) *proto.Message {
	t.Helper()
	msg, err := proto.Parse(line)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	return msg
}

func TestPredicates(t *testing.T) {
	privmsg := ":bob!u@h PRIVMSG #chan :Hello World"
	kick := ":op!u@h KICK #chan victim :bye"
	numeric := ":irc.test 433 * alice :Nickname is already in use"

	tests := []struct {
		name string
		pred Predicate
		line string
		want bool
	}{
		{"command match", MatchCommand("PRIVMSG"), privmsg, true},
		{"command case insensitive", MatchCommand("privmsg"), privmsg, true},
		{"command mismatch", MatchCommand("NOTICE"), privmsg, false},
		{"any command hit", MatchAnyCommand("001", "433"), numeric, true},
		{"any command miss", MatchAnyCommand("001", "432"), numeric, false},
		{"from nick", MatchFrom("bob"), privmsg, true},
		{"from wrong nick", MatchFrom("alice"), privmsg, false},
		{"from server prefix", MatchFrom("irc.test"), numeric, true},
		{"target channel", MatchTarget("#chan"), kick, true},
		{"target mismatch", MatchTarget("#other"), kick, false},
		{"trailing contains", MatchTrailingContains("World"), privmsg, true},
		{"trailing contains miss", MatchTrailingContains("world!"), privmsg, false},
		{"params contain victim", MatchParamsContain("victim"), kick, true},
		{"params contain case folded", MatchParamsContain("VICTIM"), kick, true},
		{"params contain miss", MatchParamsContain("nobody"), kick, false},
		{"and both", And(MatchCommand("KICK"), MatchTarget("#chan")), kick, true},
		{"and one fails", And(MatchCommand("KICK"), MatchTarget("#other")), kick, false},
		{"or second", Or(MatchCommand("PART"), MatchCommand("KICK")), kick, true},
		{"or neither", Or(MatchCommand("PART"), MatchCommand("JOIN")), kick, false},
		{"not", Not(MatchCommand("KICK")), privmsg, true},
		{"not inverted", Not(MatchCommand("KICK")), kick, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := mustParse(t, tc.line)
			if got := tc.pred(msg); got != tc.want {
				t.Errorf("predicate = %v, want %v", got, tc.want)
			}
		})
	}
}
