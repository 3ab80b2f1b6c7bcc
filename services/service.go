package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MediaStore is the object-store collaborator for avatar images. Save
// validates and persists the bytes, returning a public locator; Remove is
// idempotent and never returns an error to its caller.
type MediaStore interface {
	Save(data []byte, declaredType string) (string, error)
	Remove(locator string)
}

// CleanupScheduler receives the deferred, best-effort obligations a mutation
// leaves behind. Implementations must not block and must never report
// failure back to the request path.
type CleanupScheduler interface {
	MediaRemove(locator string)
	TeamSweep(code string)
}

// Service is the registration engine: slot allocation, identity binding,
// team lifecycle and the three member mutations, all against one relational
// store.
type Service struct {
	DB      *gorm.DB
	Media   MediaStore
	Cleanup CleanupScheduler
	Logger  *logrus.Logger
}

func NewService(db *gorm.DB, media MediaStore, cleanup CleanupScheduler, logger *logrus.Logger) *Service {
	return &Service{
		DB:      db,
		Media:   media,
		Cleanup: cleanup,
		Logger:  logger,
	}
}
