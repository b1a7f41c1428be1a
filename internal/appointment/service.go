package appointment

import (
	"go.uber.org/zap"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

// Service bundles the booking, lifecycle and query operations over one store.
// All three parts are stateless; the Repository is the only shared state.
type Service struct {
	*Booking
	*Lifecycle
	*Query
}

// NewService wires the three services. A nil locker falls back to an
// in-process per-slot lock.
func NewService(repo Repository, locker redisclient.Locker, log *zap.Logger) *Service {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Booking:   NewBooking(repo, locker, log),
		Lifecycle: NewLifecycle(repo, log),
		Query:     NewQuery(repo),
	}
}
