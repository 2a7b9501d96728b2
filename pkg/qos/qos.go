// Package qos holds the transport-neutral QoS profile of a service and its
// translation to and from transport endpoint QoS.
package qos

import (
	"fmt"
	"time"

	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

type Policy int

// Policy values shared by every policy kind below. SystemDefault leaves the
// transport default in place.
const (
	SystemDefault Policy = iota
	BestAvailable
	Unknown
)

type History = Policy

const (
	KeepLast History = iota + 10
	KeepAll
)

type Reliability = Policy

const (
	Reliable Reliability = iota + 20
	BestEffort
)

type Durability = Policy

const (
	TransientLocal Durability = iota + 30
	Volatile
)

type Liveliness = Policy

const (
	Automatic Liveliness = iota + 40
	ManualByTopic
)

// Infinite marks a duration without bound. Zero durations mean "default".
const Infinite = transport.Infinite

type Profile struct {
	History                      History
	Depth                        int
	Reliability                  Reliability
	Durability                   Durability
	Deadline                     time.Duration
	Lifespan                     time.Duration
	Liveliness                   Liveliness
	LivelinessLeaseDuration      time.Duration
	AvoidROSNamespaceConventions bool
}

// ServicesDefault is the profile services use when the caller has no opinion.
var ServicesDefault = Profile{
	History:     KeepLast,
	Depth:       10,
	Reliability: Reliable,
	Durability:  Volatile,
	Liveliness:  SystemDefault,
}

// AdaptForServices resolves BestAvailable policies to what a service needs:
// reliable, volatile, automatic liveliness and default deadline/lease.
func AdaptForServices(p Profile) Profile {
	if p.Reliability == BestAvailable {
		p.Reliability = Reliable
	}
	if p.Durability == BestAvailable {
		p.Durability = Volatile
	}
	if p.Liveliness == BestAvailable {
		p.Liveliness = Automatic
	}
	if p.History == BestAvailable {
		p.History = KeepLast
	}
	if p.Deadline == Infinite {
		p.Deadline = 0
	}
	if p.LivelinessLeaseDuration == Infinite {
		p.LivelinessLeaseDuration = 0
	}
	return p
}

// UserData is the endpoint user data advertising the type hash.
func UserData(hash typesupport.TypeHash) []byte {
	return []byte("typehash=" + hash.String() + ";")
}

func apply(p Profile, q *transport.EndpointQoS) error {
	switch p.History {
	case SystemDefault:
	case KeepLast:
		q.History = transport.KeepLast
		if p.Depth > 0 {
			q.Depth = int32(p.Depth)
		}
	case KeepAll:
		q.History = transport.KeepAll
	default:
		return fmt.Errorf("history policy %d", p.History)
	}

	switch p.Reliability {
	case SystemDefault:
	case Reliable:
		q.Reliability = transport.Reliable
	case BestEffort:
		q.Reliability = transport.BestEffort
	default:
		return fmt.Errorf("reliability policy %d", p.Reliability)
	}

	switch p.Durability {
	case SystemDefault:
	case TransientLocal:
		q.Durability = transport.TransientLocal
	case Volatile:
		q.Durability = transport.Volatile
	default:
		return fmt.Errorf("durability policy %d", p.Durability)
	}

	switch p.Liveliness {
	case SystemDefault:
	case Automatic:
		q.Liveliness = transport.Automatic
	case ManualByTopic:
		q.Liveliness = transport.ManualByTopic
	default:
		return fmt.Errorf("liveliness policy %d", p.Liveliness)
	}

	if p.Deadline < 0 || p.LivelinessLeaseDuration < 0 || p.Lifespan < 0 {
		return fmt.Errorf("negative duration")
	}
	if p.Deadline > 0 {
		q.Deadline = p.Deadline
	}
	if p.LivelinessLeaseDuration > 0 {
		q.LeaseDuration = p.LivelinessLeaseDuration
	}
	return nil
}

// ReaderQoS translates p into reader QoS advertising hash.
func ReaderQoS(p Profile, hash typesupport.TypeHash) (transport.ReaderQoS, error) {
	q := transport.DefaultReaderQoS()
	if err := apply(p, &q.EndpointQoS); err != nil {
		return transport.ReaderQoS{}, fmt.Errorf("unsupported %w", err)
	}
	q.UserData = UserData(hash)
	return q, nil
}

// WriterQoS translates p into writer QoS advertising hash.
func WriterQoS(p Profile, hash typesupport.TypeHash) (transport.WriterQoS, error) {
	q := transport.DefaultWriterQoS()
	if err := apply(p, &q.EndpointQoS); err != nil {
		return transport.WriterQoS{}, fmt.Errorf("unsupported %w", err)
	}
	if p.Lifespan > 0 {
		q.Lifespan = p.Lifespan
	}
	q.UserData = UserData(hash)
	return q, nil
}

func fromEndpoint(q transport.EndpointQoS) Profile {
	p := Profile{
		Depth:                   int(q.Depth),
		Deadline:                q.Deadline,
		LivelinessLeaseDuration: q.LeaseDuration,
	}
	switch q.History {
	case transport.KeepLast:
		p.History = KeepLast
	case transport.KeepAll:
		p.History = KeepAll
	default:
		p.History = Unknown
	}
	switch q.Reliability {
	case transport.Reliable:
		p.Reliability = Reliable
	case transport.BestEffort:
		p.Reliability = BestEffort
	default:
		p.Reliability = Unknown
	}
	switch q.Durability {
	case transport.TransientLocal:
		p.Durability = TransientLocal
	case transport.Volatile:
		p.Durability = Volatile
	default:
		p.Durability = Unknown
	}
	switch q.Liveliness {
	case transport.Automatic:
		p.Liveliness = Automatic
	case transport.ManualByTopic:
		p.Liveliness = ManualByTopic
	default:
		p.Liveliness = Unknown
	}
	return p
}

// FromReader reads back the profile of a reader. Readers have no lifespan.
func FromReader(q transport.ReaderQoS) Profile {
	return fromEndpoint(q.EndpointQoS)
}

func FromWriter(q transport.WriterQoS) Profile {
	p := fromEndpoint(q.EndpointQoS)
	p.Lifespan = q.Lifespan
	return p
}
