package attributes

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
)

var ErrInvalidEndpoint = errors.New("invalid endpoint")
var ErrUnsupportedAttribute = errors.New("unsupported attribute")

type Listener func(change models.AttributeChange)

// Store holds the attribute table for every endpoint. Not safe for concurrent use;
// it is owned by the event loop like the rest of the core.
type Store struct {
	logger    *log.Logger
	values    [][models.AttributeCount]uint16
	listeners []Listener
}

func NewStore(logger *log.Logger, endpoints int) *Store {
	s := &Store{logger: logger, values: make([][models.AttributeCount]uint16, endpoints)}
	for i := range s.values {
		s.values[i][models.AttrCurrentLevel] = constants.DefaultLevel
		s.values[i][models.AttrDefaultMoveRate] = constants.MoveRateUndefined
	}
	return s
}

// OnChange registers a listener called after every write that changes a value.
func (s *Store) OnChange(l Listener) {
	s.listeners = append(s.listeners, l)
}

func (s *Store) Endpoints() int {
	return len(s.values)
}

func (s *Store) Read(ep models.Endpoint, id models.AttributeID) (uint16, error) {
	if err := s.check(ep, id); err != nil {
		return 0, err
	}
	return s.values[ep-1][id], nil
}

func (s *Store) Write(ep models.Endpoint, id models.AttributeID, value uint16) error {
	if err := s.check(ep, id); err != nil {
		return err
	}
	if s.values[ep-1][id] == value {
		return nil
	}
	s.values[ep-1][id] = value
	s.logger.Debug("attribute written", "endpoint", ep, "attribute", id, "value", value)

	change := models.AttributeChange{Endpoint: ep, Attribute: id, Name: id.String(), Value: value}
	for _, l := range s.listeners {
		l(change)
	}
	return nil
}

func (s *Store) check(ep models.Endpoint, id models.AttributeID) error {
	if ep < 1 || int(ep) > len(s.values) {
		return fmt.Errorf("Error accessing endpoint %d: %w", ep, ErrInvalidEndpoint)
	}
	if id >= models.AttributeCount {
		return fmt.Errorf("Error accessing %v on endpoint %d: %w", id, ep, ErrUnsupportedAttribute)
	}
	return nil
}
