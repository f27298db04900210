package types

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusCanceled,
		PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further provider-driven transition is expected.
// Refunded is reachable from succeeded, so succeeded is not terminal here.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusCanceled, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

type PaymentType string

const (
	PaymentTypeReservation  PaymentType = "reservation"
	PaymentTypeSubscription PaymentType = "subscription"
	PaymentTypeOneTime      PaymentType = "one_time"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeReservation, PaymentTypeSubscription, PaymentTypeOneTime:
		return true
	default:
		return false
	}
}

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyMXN Currency = "MXN"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyMXN:
		return true
	default:
		return false
	}
}

type EventType string

const (
	// EventAll subscribes a partner to every event.
	EventAll EventType = "*"

	EventPaymentCreated   EventType = "payment.created"
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentRefunded  EventType = "payment.refunded"

	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCanceled  EventType = "reservation.canceled"

	// EventWebhookTest is sent on operator-triggered endpoint test deliveries.
	EventWebhookTest EventType = "webhook.test"
)

func (e EventType) Valid() bool {
	switch e {
	case EventAll,
		EventPaymentCreated,
		EventPaymentSucceeded,
		EventPaymentFailed,
		EventPaymentRefunded,
		EventReservationConfirmed,
		EventReservationCanceled,
		EventWebhookTest:
		return true
	default:
		return false
	}
}

type PartnerStatus string

const (
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusInactive  PartnerStatus = "inactive"
	PartnerStatusSuspended PartnerStatus = "suspended"
)

func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerStatusActive, PartnerStatusInactive, PartnerStatusSuspended:
		return true
	default:
		return false
	}
}
