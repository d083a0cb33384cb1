package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrNotPersisted = errors.New("no persisted state")

const initSchema = `
  CREATE TABLE IF NOT EXISTS endpoint_state (
    endpoint INTEGER PRIMARY KEY,
    current_level INTEGER,
    on_state INTEGER,
    last_update_time TIMESTAMP
  );
`

type EndpointStateRepo struct {
	logger *log.Logger
	db     *sql.DB
}

func NewEndpointStateRepo(logger *log.Logger, db *sql.DB) (*EndpointStateRepo, error) {

	_, err := db.Exec(initSchema)
	if err != nil {
		return nil, fmt.Errorf("Error initialising endpoint_state schema: %w", err)
	}

	return &EndpointStateRepo{logger: logger, db: db}, nil
}

// Load returns the persisted state for the endpoint, or ErrNotPersisted if nothing was saved yet.
// A row with only one of the two columns set returns zero for the other.
func (r *EndpointStateRepo) Load(ep models.Endpoint) (models.PersistedState, error) {
	row := r.db.QueryRow("SELECT coalesce(current_level, 0), coalesce(on_state, 0) FROM endpoint_state WHERE endpoint = $1", ep)
	var (
		level int
		on    bool
	)
	err := row.Scan(&level, &on)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PersistedState{}, fmt.Errorf("Error loading state for endpoint %d: %w", ep, ErrNotPersisted)
		}
		return models.PersistedState{}, fmt.Errorf("Error loading state for endpoint %d: %w", ep, err)
	}
	return models.PersistedState{Level: uint8(level), On: on}, nil
}

func (r *EndpointStateRepo) LoadLevel(ep models.Endpoint) (uint8, error) {
	state, err := r.Load(ep)
	if err != nil {
		return 0, err
	}
	if state.Level == 0 {
		return 0, fmt.Errorf("Error loading level for endpoint %d: %w", ep, ErrNotPersisted)
	}
	return state.Level, nil
}

func (r *EndpointStateRepo) SaveLevel(ep models.Endpoint, level uint8) error {
	_, err := r.db.Exec(`
    INSERT INTO endpoint_state (endpoint, current_level, last_update_time)
    VALUES ($1, $2, $3)
    ON CONFLICT(endpoint) DO UPDATE SET current_level = excluded.current_level, last_update_time = excluded.last_update_time
  `, ep, level, time.Now())
	if err != nil {
		return fmt.Errorf("Error saving level %d for endpoint %d: %w", level, ep, err)
	}
	return nil
}

func (r *EndpointStateRepo) SaveOnOff(ep models.Endpoint, on bool) error {
	_, err := r.db.Exec(`
    INSERT INTO endpoint_state (endpoint, on_state, last_update_time)
    VALUES ($1, $2, $3)
    ON CONFLICT(endpoint) DO UPDATE SET on_state = excluded.on_state, last_update_time = excluded.last_update_time
  `, ep, on, time.Now())
	if err != nil {
		return fmt.Errorf("Error saving on state %t for endpoint %d: %w", on, ep, err)
	}
	return nil
}
