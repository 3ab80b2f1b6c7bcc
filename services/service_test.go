package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"squadreg/models"
	"squadreg/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// A second connection to :memory: would see a different database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Team{}, &models.Member{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// fakeMedia stands in for the avatar store. It hands out fake locators and
// records every save and removal.
type fakeMedia struct {
	mu      sync.Mutex
	saved   []string
	removed []string

	failFormat bool
	failStore  bool
}

func (f *fakeMedia) Save(data []byte, declaredType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFormat {
		return "", utils.ErrMediaFormat
	}
	if f.failStore {
		return "", fmt.Errorf("object store unreachable")
	}
	loc := fmt.Sprintf("/uploads/fake-%d.png", len(f.saved))
	f.saved = append(f.saved, loc)
	return loc, nil
}

func (f *fakeMedia) Remove(locator string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, locator)
}

// recordingCleanup captures the deferred obligations a mutation schedules.
type recordingCleanup struct {
	mu     sync.Mutex
	media  []string
	sweeps []string
}

func (r *recordingCleanup) MediaRemove(locator string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.media = append(r.media, locator)
}

func (r *recordingCleanup) TeamSweep(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps = append(r.sweeps, code)
}

func (r *recordingCleanup) sweptTeams() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sweeps...)
}

func (r *recordingCleanup) removedMedia() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.media...)
}

func newTestService(t *testing.T) (*Service, *fakeMedia, *recordingCleanup) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	media := &fakeMedia{}
	cleanup := &recordingCleanup{}
	svc := NewService(newTestDB(t), media, cleanup, logger)
	return svc, media, cleanup
}

func mustCreateTeam(t *testing.T, svc *Service, code, name string) {
	t.Helper()
	if _, err := svc.CreateTeam(context.Background(), CreateTeamInput{Code: code, Name: name}); err != nil {
		t.Fatalf("create team %s: %v", code, err)
	}
}

func baseJoin(teamCode string) JoinInput {
	return JoinInput{
		TeamCode:      teamCode,
		Color:         "red",
		Job:           "attacker",
		GameAccountID: "G1",
		Nickname:      "A",
		ContactID:     "10001",
		Subject:       "sub-1",
	}
}
