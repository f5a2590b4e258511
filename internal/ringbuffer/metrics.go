package ringbuffer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	messagesWritten      prometheus.Counter
	bytesWritten         prometheus.Counter
	messagesRead         prometheus.Counter
	bytesRead            prometheus.Counter
	paddingRecords       prometheus.Counter
	insufficientCapacity prometheus.Counter
	abortedClaims        prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer, namespace, subsystem string) *metrics {
	registerer = prometheus.WrapRegistererWith(
		prometheus.Labels{"component": "ringbuffer"},
		registerer,
	)

	m := metrics{
		messagesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_written",
			Help:      "Number of messages published into the ring buffer",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_written",
			Help:      "Number of bytes claimed by published records, headers and alignment included",
		}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_read",
			Help:      "Number of messages consumed from the ring buffer",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bytes_read",
			Help:      "Number of bytes released back to the writer",
		}),
		paddingRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "padding_records",
			Help:      "Number of padding records inserted at the end of the buffer",
		}),
		insufficientCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "insufficient_capacity",
			Help:      "Number of writes rejected because the reader had not freed enough space",
		}),
		abortedClaims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "aborted_claims",
			Help:      "Number of claimed records turned into padding",
		}),
	}

	registerer.MustRegister(
		m.messagesWritten,
		m.bytesWritten,
		m.messagesRead,
		m.bytesRead,
		m.paddingRecords,
		m.insufficientCapacity,
		m.abortedClaims,
	)

	return &m
}
