package kmain

import (
	"mikango/kernel/queue"
	"mikango/kernel/sync"
)

// MessageType identifies the event carried by a Message.
type MessageType uint8

const (
	// MessageXHCIInterrupt reports that the host controller raised an
	// interrupt and its event ring needs to be drained.
	MessageXHCIInterrupt MessageType = iota + 1
)

// Message is an event handed from an interrupt handler to the main loop.
type Message struct {
	Type MessageType
}

const mainQueueCapacity = 32

// eventQueue is the state shared between interrupt handlers and the main
// loop.
type eventQueue struct {
	queue queue.ArrayQueue[Message]

	// dropped counts notifications lost because the queue was full. The
	// main loop reports and resets it.
	dropped uint64
}

var (
	mainQueue    sync.IRQCell[eventQueue]
	mainQueueBuf [mainQueueCapacity]Message
)

func initMainQueue(cs sync.CriticalSection) {
	events := mainQueue.Borrow(cs)
	events.queue.Init(mainQueueBuf[:])
	events.dropped = 0
}

// postFromISR queues msg from interrupt context. If the queue is full the
// message is dropped: a single drain of the event ring handles any number of
// coalesced notifications.
func postFromISR(msg Message) {
	events := mainQueue.Borrow(sync.InterruptContext())
	if events.queue.Push(msg) != nil {
		events.dropped++
	}
}

// takeDropped returns the number of notifications dropped since the last
// call and resets the counter.
func (q *eventQueue) takeDropped() uint64 {
	dropped := q.dropped
	q.dropped = 0
	return dropped
}
