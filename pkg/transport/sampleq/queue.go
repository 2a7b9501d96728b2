// Package sampleq is the reader-side sample history shared by the transports:
// it buffers received samples, lends them out on take, tracks read conditions
// and dispatches the data-available listener.
package sampleq

import (
	"errors"
	"sync"
	"time"

	"github.com/f0mster/reqrep/pkg/transport"
)

var (
	ErrLoanOutstanding = errors.New("previous loan was not returned")
	ErrUnknownLoan     = errors.New("loan does not belong to this reader")
	ErrUnknownCond     = errors.New("read condition does not belong to this reader")
)

type entry struct {
	data []byte
	info transport.SampleInfoEx
}

type Queue struct {
	mu       sync.Mutex
	owner    transport.Reader
	samples  []entry
	depth    int
	loan     *transport.Loan
	listener *transport.ReaderListener
	mask     transport.StatusMask
	changes  transport.StatusMask
	conds    map[*condition]bool
	now      func() time.Time
}

// New creates the history of owner. KeepLast keeps the newest depth samples,
// KeepAll (or depth <= 0) keeps everything.
func New(owner transport.Reader, qos transport.ReaderQoS) *Queue {
	depth := 0
	if qos.History == transport.KeepLast && qos.Depth > 0 {
		depth = int(qos.Depth)
	}
	return &Queue{
		owner: owner,
		depth: depth,
		conds: map[*condition]bool{},
		now:   time.Now,
	}
}

// Push stores one received sample and notifies the listener when the
// data-available status is enabled. The listener runs on the caller's goroutine,
// which is the transport's delivery goroutine.
func (q *Queue) Push(data []byte, info transport.SampleInfoEx) {
	q.mu.Lock()
	if info.ReceptionTimestamp.IsZero() {
		info.ReceptionTimestamp = transport.TimeFrom(q.now())
	}
	q.samples = append(q.samples, entry{data: data, info: info})
	if q.depth > 0 && len(q.samples) > q.depth {
		q.samples = append(q.samples[:0:0], q.samples[len(q.samples)-q.depth:]...)
	}
	q.changes |= transport.DataAvailableStatus
	l, mask := q.listener, q.mask
	q.mu.Unlock()

	if l != nil && l.OnDataAvailable != nil && mask&transport.DataAvailableStatus != 0 {
		l.OnDataAvailable(q.owner)
	}
}

func (q *Queue) Take(max int) (*transport.Loan, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loan != nil {
		return nil, ErrLoanOutstanding
	}
	q.changes &^= transport.DataAvailableStatus
	if len(q.samples) == 0 {
		return nil, transport.ErrNoData
	}
	if max <= 0 || max > len(q.samples) {
		max = len(q.samples)
	}
	loan := &transport.Loan{
		Data:  make([][]byte, 0, max),
		Infos: make([]transport.SampleInfoEx, 0, max),
	}
	for _, e := range q.samples[:max] {
		loan.Data = append(loan.Data, e.data)
		loan.Infos = append(loan.Infos, e.info)
	}
	q.samples = append(q.samples[:0:0], q.samples[max:]...)
	q.loan = loan
	return loan, nil
}

func (q *Queue) ReturnLoan(l *transport.Loan) error {
	if l == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.loan != l {
		return ErrUnknownLoan
	}
	q.loan = nil
	return nil
}

// Loaned reports whether a loan is currently outstanding.
func (q *Queue) Loaned() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loan != nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}

func (q *Queue) SetListener(l *transport.ReaderListener, mask transport.StatusMask) {
	q.mu.Lock()
	q.listener = l
	q.mask = mask
	q.mu.Unlock()
}

func (q *Queue) StatusChanges() transport.StatusMask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.changes
}

func (q *Queue) CreateReadCondition(mask transport.StateMask) transport.ReadCondition {
	c := &condition{q: q, mask: mask}
	q.mu.Lock()
	q.conds[c] = true
	q.mu.Unlock()
	return c
}

func (q *Queue) DeleteReadCondition(rc transport.ReadCondition) error {
	c, ok := rc.(*condition)
	q.mu.Lock()
	defer q.mu.Unlock()
	if !ok || !q.conds[c] {
		return ErrUnknownCond
	}
	delete(q.conds, c)
	return nil
}

func (q *Queue) Conditions() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.conds)
}

// Clear drops buffered samples and the listener. Used when the reader is deleted.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.samples = nil
	q.listener = nil
	q.mask = 0
	q.conds = map[*condition]bool{}
	q.mu.Unlock()
}

type condition struct {
	q    *Queue
	mask transport.StateMask
}

func (c *condition) Mask() transport.StateMask {
	return c.mask
}

func (c *condition) UnreadCount() int {
	return c.q.Len()
}
