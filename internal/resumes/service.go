package resumes

import (
	"context"
	"errors"

	"jobmate-backend/internal/shared/storage/db"
)

const (
	UploadedMessage  = "Resume uploaded successfully (placeholder)"
	RetrievedMessage = "Resume retrieved successfully (placeholder)"
)

var ErrNoSession = errors.New("resumes: database session is required")

// Result is the acknowledgement returned by resume operations.
type Result struct {
	Message string `json:"message"`
}

// Service holds resume operations. Persistence is not implemented yet:
// both operations acknowledge without touching the session.
type Service struct{}

// NewService constructs a Service.
func NewService() *Service {
	return &Service{}
}

// Upload will store a resume for the session's user.
func (s *Service) Upload(ctx context.Context, session *db.Session) (Result, error) {
	if session == nil {
		return Result{}, ErrNoSession
	}
	return Result{Message: UploadedMessage}, nil
}

// Get will load the session user's resume.
func (s *Service) Get(ctx context.Context, session *db.Session) (Result, error) {
	if session == nil {
		return Result{}, ErrNoSession
	}
	return Result{Message: RetrievedMessage}, nil
}
