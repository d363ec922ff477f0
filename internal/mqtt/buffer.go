package mqtt

import "log"

// outbound is a serialized MQTT message held for replay after reconnection.
type outbound struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue holds messages while the broker is unreachable, oldest first.
//
// When full, the oldest QoS 0 access event is dropped so that lifecycle
// messages survive a long outage; only a queue of nothing but QoS 1
// messages loses its oldest entry. A retained message replaces any queued
// retained message on the same topic, since the broker keeps only the last.
// Not safe for concurrent use; the caller must synchronize.
type offlineQueue struct {
	msgs     []outbound
	capacity int
	dropped  int // messages discarded since the last drain
}

func newOfflineQueue(capacity int) *offlineQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &offlineQueue{capacity: capacity}
}

func (q *offlineQueue) push(msg outbound) {
	if msg.retained {
		for i, m := range q.msgs {
			if m.retained && m.topic == msg.topic {
				q.remove(i)
				break
			}
		}
	}
	if len(q.msgs) == q.capacity {
		if q.dropped == 0 {
			log.Printf("mqtt: offline queue full (%d messages), dropping oldest access events", q.capacity)
		}
		q.remove(q.victim())
		q.dropped++
	}
	q.msgs = append(q.msgs, msg)
}

// victim picks the entry to discard on overflow.
func (q *offlineQueue) victim() int {
	for i, m := range q.msgs {
		if m.qos == 0 {
			return i
		}
	}
	return 0
}

func (q *offlineQueue) remove(i int) {
	q.msgs = append(q.msgs[:i], q.msgs[i+1:]...)
}

// drain returns queued messages oldest first and empties the queue.
func (q *offlineQueue) drain() []outbound {
	if len(q.msgs) == 0 {
		return nil
	}
	if q.dropped > 0 {
		log.Printf("mqtt: %d queued messages were dropped while offline", q.dropped)
	}
	out := q.msgs
	q.msgs, q.dropped = nil, 0
	return out
}

func (q *offlineQueue) len() int {
	return len(q.msgs)
}
