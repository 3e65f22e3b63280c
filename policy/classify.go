package policy

import (
	"errors"
	"strings"

	"github.com/washpoint/washpoint/iot"
	"github.com/washpoint/washpoint/payment"
	"github.com/washpoint/washpoint/resilience"
)

// paymentRetryable reports whether a payment failure is worth another
// attempt: server-side or transport conditions only, never declined
// funds or validation rejections.
func paymentRetryable(err error) bool {
	var perr *payment.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case payment.KindUnavailable, payment.KindNetwork, payment.KindTimeout:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// The breaker has already decided the gateway is down; more
		// attempts inside this call would be rejected the same way.
		return false
	}
	return matchesAny(err, "network", "connection", "timeout", "unavailable", "temporarily")
}

// iotRetryable reports whether a controller failure is worth another
// attempt. Transport conditions are; device-reported states (offline,
// maintenance, busy) and unknown machines are not.
func iotRetryable(err error) bool {
	var ierr *iot.Error
	if errors.As(err, &ierr) {
		switch ierr.Kind {
		case iot.KindTimeout, iot.KindUnreachable:
			return true
		default:
			return false
		}
	}
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	if matchesAny(err, "offline", "maintenance", "not found") {
		return false
	}
	return matchesAny(err, "connection", "timeout", "unreachable", "network")
}

// externalRetryable covers generic dependencies: transport and
// server-side failures only.
func externalRetryable(err error) bool {
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}
	return matchesAny(err, "network", "connection", "timeout", "unavailable", "5xx", "server error")
}

func matchesAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
