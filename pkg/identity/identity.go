// Package identity converts between transport-native endpoint identities and
// sequence numbers and the 16-byte caller identity and 64-bit sequence number
// carried in request/response correlation.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/f0mster/reqrep/pkg/transport"
)

const GIDSize = 16

// GID is the opaque caller-identity token of one outgoing channel.
type GID [GIDSize]byte

func (g GID) String() string {
	return hex.EncodeToString(g[:])
}

func (g GID) IsZero() bool {
	return g == GID{}
}

// RequestID correlates one request with its response.
type RequestID struct {
	WriterGUID     GID
	SequenceNumber int64
}

// FromGUID lays the 12-byte prefix out first, followed by the entity id in
// network byte order.
func FromGUID(g transport.GUID) GID {
	var id GID
	copy(id[:12], g.Prefix[:])
	binary.BigEndian.PutUint32(id[12:], g.EntityID)
	return id
}

func ToGUID(id GID) transport.GUID {
	var g transport.GUID
	copy(g.Prefix[:], id[:12])
	g.EntityID = binary.BigEndian.Uint32(id[12:])
	return g
}

func FromSequenceNumber(sn transport.SequenceNumber) int64 {
	return JoinSequence(sn.High, sn.Low)
}

func ToSequenceNumber(n int64) transport.SequenceNumber {
	high, low := SplitSequence(n)
	return transport.SequenceNumber{High: high, Low: low}
}

func SplitSequence(n int64) (high int32, low uint32) {
	return int32(n >> 32), uint32(n)
}

func JoinSequence(high int32, low uint32) int64 {
	return int64(high)<<32 | int64(low)
}

// Nanoseconds converts a transport timestamp to nanoseconds since the epoch.
func Nanoseconds(t transport.Time) int64 {
	return int64(t.Sec)*int64(time.Second) + int64(t.Nanosec)
}

func (id RequestID) String() string {
	return id.WriterGUID.String() + ":" + strconv.FormatInt(id.SequenceNumber, 10)
}
