package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/destiny-cli/internal/domain"
	"github.com/bnema/destiny-cli/internal/ports"
)

const (
	SessionPathKey  = "session.path"
	sessionFileMode = 0o600
	sessionDirMode  = 0o700
	sessionFileName = "session.toml"
	tempFilePattern = ".session-*.toml.tmp"
)

// SessionRepository persists the last bootstrapped session so it can be
// shown without talking to Bungie.
type SessionRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository resolves the file from session.path, defaulting to
// session.toml next to the config file in configDir.
func NewSessionRepository(cfg *viper.Viper, configDir string) (*SessionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	cfg.SetDefault(SessionPathKey, filepath.Join(configDir, sessionFileName))

	path := cfg.GetString(SessionPathKey)
	if path == "" {
		return nil, errors.New("session path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve session path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &SessionRepository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *SessionRepository) Path() string {
	return r.path
}

func (r *SessionRepository) Load(ctx context.Context) (domain.SessionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionSnapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.SessionSnapshot{}, domain.ErrSessionNotFound
		}
		return domain.SessionSnapshot{}, fmt.Errorf("read session file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("decode session file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.SessionSnapshot{}, err
	}
	file.applyDefaults()

	return fromSchema(file), nil
}

func (r *SessionRepository) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeSchema(toSchema(snapshot))
}

func (r *SessionRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *SessionRepository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, sessionDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	cleanup = false

	return nil
}

func toSchema(snapshot domain.SessionSnapshot) fileSchema {
	characters := make([]characterSchema, 0, len(snapshot.Characters))
	for _, character := range snapshot.Characters {
		characters = append(characters, characterSchema{
			ID:         string(character.ID),
			LastPlayed: formatTime(character.LastPlayed),
		})
	}

	return fileSchema{
		Version: currentSchemaVersion,
		Session: sessionSchema{
			Platform:     string(snapshot.Platform),
			Username:     snapshot.Username,
			MembershipID: snapshot.MembershipID,
			SavedAt:      formatTime(snapshot.SavedAt),
		},
		Characters: characters,
	}
}

func fromSchema(file fileSchema) domain.SessionSnapshot {
	var characters []domain.CharacterSummary
	for _, character := range file.Characters {
		characters = append(characters, domain.CharacterSummary{
			ID:         domain.CharacterID(character.ID),
			LastPlayed: parseTime(character.LastPlayed),
		})
	}

	return domain.SessionSnapshot{
		Platform:     domain.Platform(file.Session.Platform),
		Username:     file.Session.Username,
		MembershipID: file.Session.MembershipID,
		Characters:   characters,
		SavedAt:      parseTime(file.Session.SavedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
