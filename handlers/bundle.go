package handlers

// HandlerBundle aggregates the HTTP handlers wired up in main and handed
// to route registration.
type HandlerBundle struct {
	Booking      *BookingHandler
	Timeouts     *TimeoutHandler
	Slots        *SlotsHandler
	Availability *AvailabilityHandler
}
