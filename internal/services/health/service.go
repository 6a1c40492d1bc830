package health

import "context"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db Pinger
}

// NewService constructs a new health service. db may be nil.
func NewService(db Pinger) *Service {
	return &Service{db: db}
}

// Check returns nil when every dependency answers.
func (s *Service) Check(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping(ctx)
}
