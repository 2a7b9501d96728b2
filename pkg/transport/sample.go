package transport

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

type GUID struct {
	Prefix   [12]byte
	EntityID uint32
}

func (g GUID) IsZero() bool {
	return g == GUID{}
}

// NewGUID derives a participant-unique GUID from a random uuid.
func NewGUID() GUID {
	return GUIDFromUUID(uuid.New())
}

func GUIDFromUUID(u uuid.UUID) GUID {
	g := GUID{}
	copy(g.Prefix[:], u[:12])
	g.EntityID = binary.BigEndian.Uint32(u[12:])
	return g
}

// WithEntity keeps the participant prefix and replaces the entity id.
func (g GUID) WithEntity(id uint32) GUID {
	g.EntityID = id
	return g
}

type SequenceNumber struct {
	High int32
	Low  uint32
}

type Time struct {
	Sec     int32
	Nanosec uint32
}

func TimeFrom(t time.Time) Time {
	ns := t.UnixNano()
	return Time{Sec: int32(ns / int64(time.Second)), Nanosec: uint32(ns % int64(time.Second))}
}

func (t Time) IsZero() bool {
	return t == Time{}
}

type SampleInfo struct {
	ValidData       bool
	SourceTimestamp Time
}

type SampleInfoEx struct {
	SampleInfo
	SrcGUID            GUID
	Seq                SequenceNumber
	ReceptionTimestamp Time
}
