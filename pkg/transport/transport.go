package transport

import (
	"errors"
	"time"
)

// Do not call any of this methods directly or from client.
// Participants are wrapped by service.Context, which owns topology changes.

var (
	ErrNoData    = errors.New("no data")
	ErrTimeout   = errors.New("timeout")
	ErrNotFound  = errors.New("not found")
	ErrClosed    = errors.New("participant closed")
	ErrBadHandle = errors.New("handle does not belong to this participant")
)

type StatusMask uint32

const DataAvailableStatus StatusMask = 1 << 10

type StateMask uint32

const AnyState StateMask = 0xffff

type ReaderListener struct {
	OnDataAvailable func(r Reader)
}

type Topic interface {
	Name() string
	TypeName() string
}

// TypeHandle is the transient registration object of one type. Releasing it
// does not unregister the type from the participant.
type TypeHandle interface {
	TypeName() string
	Release()
}

type ReadCondition interface {
	Mask() StateMask
	// UnreadCount reports samples received and not yet taken.
	UnreadCount() int
}

// Loan holds samples borrowed from a reader. It must be handed back with
// Reader.ReturnLoan before the next take on the same reader.
type Loan struct {
	Data  [][]byte
	Infos []SampleInfoEx
}

func (l *Loan) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Infos)
}

type Reader interface {
	GUID() GUID
	TopicName() string
	QoS() (ReaderQoS, error)
	// Take removes at most max samples. It never blocks and returns ErrNoData
	// when nothing is buffered.
	Take(max int) (*Loan, error)
	ReturnLoan(l *Loan) error
	CreateReadCondition(mask StateMask) (ReadCondition, error)
	DeleteReadCondition(c ReadCondition) error
	SetListener(l *ReaderListener, mask StatusMask) error
	StatusChanges() StatusMask
}

type Writer interface {
	GUID() GUID
	TopicName() string
	QoS() (WriterQoS, error)
	Write(data []byte) error
	// WriteWithInfo publishes data carrying the sample identity in info.
	// SrcGUID and Seq are published as given, zero values included.
	WriteWithInfo(data []byte, info SampleInfoEx) error
}

type Participant interface {
	// SupportsSampleIdentity reports whether SampleInfoEx.SrcGUID and Seq survive
	// the trip from WriteWithInfo to Take.
	SupportsSampleIdentity() bool
	RegisterType(typeName, metaString string) (TypeHandle, error)
	LookupTopicDescription(name string) bool
	DefaultTopicQoS() (TopicQoS, error)
	CreateTopic(name, typeName string, qos TopicQoS) (Topic, error)
	FindTopic(name string, timeout time.Duration) (Topic, error)
	DeleteTopic(t Topic) error
	CreateReader(t Topic, qos ReaderQoS) (Reader, error)
	DeleteReader(r Reader) error
	CreateWriter(t Topic, qos WriterQoS) (Writer, error)
	DeleteWriter(w Writer) error
	Close() error
}
