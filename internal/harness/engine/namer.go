package engine

import (
	"strconv"
	"sync/atomic"
	"time"
)

// Namer hands out nicknames and channel names that are unique within
// a run, so scenarios never collide with residue from earlier runs
// against the same server. Nicknames stay within the RFC 1459 nine
// character limit.
type Namer struct {
	prefix string
	nicks  atomic.Uint32
	chans  atomic.Uint32
}

// NewNamer creates a namer with a time-derived run prefix.
func NewNamer() *Namer {
	stamp := time.Now().Unix() % (36 * 36 * 36 * 36)
	return &Namer{prefix: strconv.FormatInt(stamp, 36)}
}

// Nick returns a fresh unique nickname.
func (n *Namer) Nick() string {
	seq := n.nicks.Add(1)
	return "t" + n.prefix + strconv.FormatUint(uint64(seq), 36)
}

// Channel returns a fresh unique channel name.
func (n *Namer) Channel() string {
	seq := n.chans.Add(1)
	return "#c" + n.prefix + "-" + strconv.FormatUint(uint64(seq), 36)
}
