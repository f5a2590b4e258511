package ringbuffer

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type Option = func(*config)

type config struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	namespace  string
	subsystem  string
}

func defaultConfig() config {
	return config{
		logger:    slog.Default(),
		namespace: "ringframe",
		subsystem: "ring",
	}
}

func WithLogger(logger *slog.Logger) Option {
	if logger == nil {
		panic("logger can't be nil")
	}
	return func(c *config) {
		c.logger = logger
	}
}

// WithPrometheus registers the ring buffer metrics on registerer.
func WithPrometheus(registerer prometheus.Registerer, namespace, subsystem string) Option {
	if registerer == nil {
		panic("registerer can't be nil")
	}
	namespace = strings.TrimSpace(namespace)
	subsystem = strings.TrimSpace(subsystem)
	return func(c *config) {
		c.registerer = registerer
		c.namespace = namespace
		c.subsystem = subsystem
	}
}
