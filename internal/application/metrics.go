package application

import "time"

// QuoteMetrics receives orchestrator events for instrumentation.
type QuoteMetrics interface {
	QuoteServed(outcome string)
	ProviderAttempt(source string, ok bool)
	ProviderLatency(source string, d time.Duration)
	ProviderSkipped(source string)
	BreakerTripped(source string)
}

// NoopMetrics drops all events.
type NoopMetrics struct{}

func (NoopMetrics) QuoteServed(string)                    {}
func (NoopMetrics) ProviderAttempt(string, bool)          {}
func (NoopMetrics) ProviderLatency(string, time.Duration) {}
func (NoopMetrics) ProviderSkipped(string)                {}
func (NoopMetrics) BreakerTripped(string)                 {}
