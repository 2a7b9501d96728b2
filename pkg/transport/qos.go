package transport

import (
	"math"
	"time"
)

type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

type DurabilityKind int

const (
	Volatile DurabilityKind = iota
	TransientLocal
	Transient
	Persistent
)

type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

const Infinite time.Duration = math.MaxInt64

type EndpointQoS struct {
	Reliability   ReliabilityKind
	Durability    DurabilityKind
	Deadline      time.Duration
	Liveliness    LivelinessKind
	LeaseDuration time.Duration
	History       HistoryKind
	Depth         int32
	UserData      []byte
}

type ReaderQoS struct {
	EndpointQoS
}

type WriterQoS struct {
	EndpointQoS
	Lifespan time.Duration
}

type TopicQoS struct {
	Reliability ReliabilityKind
	Durability  DurabilityKind
	History     HistoryKind
	Depth       int32
}

func DefaultTopicQoS() TopicQoS {
	return TopicQoS{Reliability: BestEffort, Durability: Volatile, History: KeepLast, Depth: 1}
}

func DefaultReaderQoS() ReaderQoS {
	return ReaderQoS{EndpointQoS: EndpointQoS{
		Reliability:   BestEffort,
		Durability:    Volatile,
		Deadline:      Infinite,
		Liveliness:    Automatic,
		LeaseDuration: Infinite,
		History:       KeepLast,
		Depth:         1,
	}}
}

func DefaultWriterQoS() WriterQoS {
	return WriterQoS{
		EndpointQoS: EndpointQoS{
			Reliability:   Reliable,
			Durability:    Volatile,
			Deadline:      Infinite,
			Liveliness:    Automatic,
			LeaseDuration: Infinite,
			History:       KeepLast,
			Depth:         1,
		},
		Lifespan: Infinite,
	}
}
