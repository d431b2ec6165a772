package services

import (
	"github.com/AgamW017/vibe/internal/observability"
)

// ServiceOption configures optional collaborators shared by the services in this package
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	instruments *observability.Instruments
}

// WithInstruments records service counters into the given instruments
func WithInstruments(instruments *observability.Instruments) ServiceOption {
	return func(o *serviceOptions) {
		o.instruments = instruments
	}
}

func applyServiceOptions(opts []ServiceOption) serviceOptions {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
