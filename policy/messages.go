package policy

import (
	"errors"

	"github.com/washpoint/washpoint/iot"
	"github.com/washpoint/washpoint/payment"
	"github.com/washpoint/washpoint/resilience"
)

// User-facing failure messages. These never leak dependency internals:
// no protocol names, no addresses, no stack traces.
const (
	msgPaymentNetwork  = "Could not reach the payment service. Please try again shortly."
	msgPaymentTimeout  = "The payment took too long to process. Please try again."
	msgPaymentBalance  = "Insufficient balance for this session."
	msgPaymentGeneric  = "Payment failed. Please try again or use another payment method."
	msgMachineOffline  = "This machine is currently offline. Please choose another machine."
	msgMachineService  = "This machine is under maintenance. Please choose another machine."
	msgMachineTimeout  = "The machine did not respond in time. Please try again."
	msgMachineBusy     = "This machine is busy right now."
	msgMachineGeneric  = "Could not start the machine. Please try again."
)

func paymentMessage(err error) string {
	var perr *payment.Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case payment.KindNetwork, payment.KindUnavailable:
			return msgPaymentNetwork
		case payment.KindTimeout:
			return msgPaymentTimeout
		case payment.KindInsufficientFunds:
			return msgPaymentBalance
		}
		return msgPaymentGeneric
	}

	switch {
	case errors.Is(err, resilience.ErrTimeout):
		return msgPaymentTimeout
	case errors.Is(err, resilience.ErrCircuitOpen):
		return msgPaymentNetwork
	case matchesAny(err, "insufficient"):
		return msgPaymentBalance
	case matchesAny(err, "network", "connection"):
		return msgPaymentNetwork
	case matchesAny(err, "timeout"):
		return msgPaymentTimeout
	}
	return msgPaymentGeneric
}

func iotMessage(err error) string {
	var ierr *iot.Error
	if errors.As(err, &ierr) {
		switch ierr.Kind {
		case iot.KindOffline:
			return msgMachineOffline
		case iot.KindMaintenance:
			return msgMachineService
		case iot.KindTimeout:
			return msgMachineTimeout
		case iot.KindBusy:
			return msgMachineBusy
		}
		return msgMachineGeneric
	}

	switch {
	case errors.Is(err, resilience.ErrTimeout):
		return msgMachineTimeout
	case matchesAny(err, "offline"):
		return msgMachineOffline
	case matchesAny(err, "maintenance"):
		return msgMachineService
	case matchesAny(err, "timeout"):
		return msgMachineTimeout
	case matchesAny(err, "busy"):
		return msgMachineBusy
	}
	return msgMachineGeneric
}
