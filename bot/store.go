package bot

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

// PositionStore persists the monitored-position set between process
// restarts. An empty path disables persistence.
type PositionStore struct {
	path   string
	logger *zap.Logger
}

func NewPositionStore(path string, logger *zap.Logger) *PositionStore {
	return &PositionStore{path: path, logger: logger.Named("bot_store")}
}

// Load reads the position set. A missing or malformed file yields an
// empty set, never a startup failure.
func (s *PositionStore) Load() map[string]*Position {
	out := make(map[string]*Position)
	if s.path == "" {
		return out
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("unreadable bot positions, starting empty", zap.Error(err))
		}
		return out
	}

	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("malformed bot positions, starting empty",
			zap.String("path", s.path), zap.Error(err))
		return make(map[string]*Position)
	}
	return out
}

// Save writes the position set atomically.
func (s *PositionStore) Save(positions map[string]*Position) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
