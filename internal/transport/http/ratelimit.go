package http

import "golang.org/x/time/rate"

// inboundLimiter throttles the messages one connection may send. A nil
// limiter allows everything.
type inboundLimiter struct {
	lim *rate.Limiter
}

func newInboundLimiter(perMinute int) *inboundLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &inboundLimiter{
		lim: rate.NewLimiter(rate.Limit(float64(perMinute)/60), perMinute),
	}
}

func (l *inboundLimiter) allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}
