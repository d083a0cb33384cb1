package levelcontrol_test

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wheelibin/striplight/internal/attributes"
	"github.com/wheelibin/striplight/internal/concurrency"
	"github.com/wheelibin/striplight/internal/config"
	levelcontrol "github.com/wheelibin/striplight/internal/levelControl"
	"github.com/wheelibin/striplight/internal/models"
	"github.com/wheelibin/striplight/mocks"
)

const tick = 50 * time.Millisecond

// journal records sink writes and on/off callbacks in call order
type journal struct {
	events []string
}

type recordingSink struct {
	j      *journal
	levels map[models.Channel][]uint8
}

func (s *recordingSink) SetLevel(ch models.Channel, level uint8) {
	s.levels[ch] = append(s.levels[ch], level)
	s.j.events = append(s.j.events, fmt.Sprintf("out%d:%d", ch, level))
}

type fakeOnOff struct {
	j      *journal
	states map[models.Endpoint]models.OnOffState
}

func (f *fakeOnOff) State(ep models.Endpoint) models.OnOffState {
	if s, ok := f.states[ep]; ok {
		return s
	}
	return models.StateOn
}

func (f *fakeOnOff) SetOnOffFromLevel(ep models.Endpoint, on bool) {
	f.j.events = append(f.j.events, fmt.Sprintf("onoff%d:%t", ep, on))
}

func (f *fakeOnOff) TransitionFinished(ep models.Endpoint) {
	f.j.events = append(f.j.events, fmt.Sprintf("finished%d", ep))
}

type fixture struct {
	loop   *concurrency.EventLoop
	attrs  *attributes.Store
	sink   *recordingSink
	onOff  *fakeOnOff
	store  *mocks.MockLevelcontrolLevelPersister
	engine *levelcontrol.Engine
	j      *journal
}

func newFixture(t *testing.T, persisted uint8) fixture {
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	cfg := config.Defaults()
	j := &journal{}
	loop := concurrency.NewEventLoop(logger)
	attrs := attributes.NewStore(logger, cfg.Endpoints)
	sink := &recordingSink{j: j, levels: map[models.Channel][]uint8{}}
	onOff := &fakeOnOff{j: j, states: map[models.Endpoint]models.OnOffState{}}
	store := mocks.NewMockLevelcontrolLevelPersister(t)
	store.On("LoadLevel", mock.Anything).Return(persisted, nil).Maybe()

	engine := levelcontrol.NewEngine(logger, cfg, loop, attrs, sink, store)
	engine.SetOnOffCoupling(onOff)
	engine.Initialise()

	return fixture{loop, attrs, sink, onOff, store, engine, j}
}

func (f fixture) attr(ep models.Endpoint, id models.AttributeID) uint16 {
	v, _ := f.attrs.Read(ep, id)
	return v
}

func Test_Initialise(t *testing.T) {

	t.Run("should restore persisted levels and fall back to the default", func(t *testing.T) {
		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		cfg := config.Defaults()
		loop := concurrency.NewEventLoop(logger)
		attrs := attributes.NewStore(logger, cfg.Endpoints)
		store := mocks.NewMockLevelcontrolLevelPersister(t)
		store.On("LoadLevel", models.Endpoint(1)).Return(uint8(100), nil)
		store.On("LoadLevel", models.Endpoint(2)).Return(uint8(0), errors.New("not found"))
		store.On("LoadLevel", models.Endpoint(3)).Return(uint8(0), nil)
		store.On("LoadLevel", models.Endpoint(4)).Return(uint8(255), nil)
		engine := levelcontrol.NewEngine(logger, cfg, loop, attrs, &recordingSink{j: &journal{}, levels: map[models.Channel][]uint8{}}, store)

		// act
		engine.Initialise()

		// assert
		expected := map[models.Endpoint]uint8{1: 100, 2: 254, 3: 254, 4: 254}
		for ep, level := range expected {
			assert.Equal(t, level, engine.StableLevel(ep), "endpoint %d", ep)
			v, _ := attrs.Read(ep, models.AttrCurrentLevel)
			assert.Equal(t, uint16(level), v, "endpoint %d", ep)
		}
	})
}

func Test_StartTransition(t *testing.T) {

	for _, duration := range []uint16{0, 0xFFFF} {
		duration := duration
		t.Run(fmt.Sprintf("duration %#x: should reach the target in one tick", duration), func(t *testing.T) {
			// arrange
			f := newFixture(t, 100)
			f.store.On("SaveLevel", models.Endpoint(1), uint8(200)).Return(nil).Once()

			// act
			require.NoError(t, f.engine.StartTransition(1, 200, duration, true, false))
			f.loop.Advance(0)

			// assert
			assert.Equal(t, []uint8{200}, f.sink.levels[0])
			assert.False(t, f.engine.Active(1))
			assert.Equal(t, uint8(200), f.engine.CurrentLevel(1))
			assert.Equal(t, uint16(200), f.attr(1, models.AttrCurrentLevel))
			assert.Zero(t, f.attr(1, models.AttrRemainingTime))
		})
	}

	cases := []struct {
		from, to uint8
		duration uint16
		maxTicks int
	}{
		{100, 200, 10, 20},
		{100, 251, 7, 14},
		{100, 1, 5, 10},
		{254, 1, 30, 64},
		{1, 254, 1, 2},
		{100, 103, 100, 1},
		{150, 148, 50, 1},
	}

	for _, c := range cases {
		c := c
		t.Run(fmt.Sprintf("%d->%d over %dds: should move monotonically and land exactly", c.from, c.to, c.duration), func(t *testing.T) {
			// arrange
			f := newFixture(t, c.from)
			f.store.On("SaveLevel", models.Endpoint(2), c.to).Return(nil).Once()

			// act
			_ = f.engine.StartTransition(2, c.to, c.duration, true, false)
			f.loop.Advance(time.Duration(c.maxTicks+5) * tick)

			// assert
			levels := f.sink.levels[1]
			require.NotEmpty(t, levels)
			assert.LessOrEqual(t, len(levels), c.maxTicks)
			assert.Equal(t, c.to, levels[len(levels)-1])
			prev := c.from
			for _, l := range levels {
				if c.to > c.from {
					assert.GreaterOrEqual(t, l, prev)
					assert.LessOrEqual(t, l, c.to)
				} else {
					assert.LessOrEqual(t, l, prev)
					assert.GreaterOrEqual(t, l, c.to)
				}
				prev = l
			}
			assert.Equal(t, c.to, f.engine.StableLevel(2))
		})
	}

	t.Run("should step evenly and report remaining time", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(200)).Return(nil).Once()

		// act
		_ = f.engine.StartTransition(1, 200, 10, true, false)
		f.loop.Advance(0)

		// assert
		assert.Equal(t, []uint8{105}, f.sink.levels[0])
		assert.Equal(t, uint16(105), f.attr(1, models.AttrCurrentLevel))
		assert.Equal(t, uint16(10), f.attr(1, models.AttrRemainingTime))

		f.loop.Advance(time.Second)
		assert.Len(t, f.sink.levels[0], 20)
		assert.Zero(t, f.attr(1, models.AttrRemainingTime))
	})

	t.Run("target outside bounds: should clamp", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(1)).Return(nil).Once()

		_ = f.engine.StartTransition(1, 0, 0, true, false)
		f.loop.Advance(0)

		assert.Equal(t, []uint8{1}, f.sink.levels[0])
	})

	t.Run("new transition should cancel the one in flight", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(50)).Return(nil).Once()

		_ = f.engine.StartTransition(1, 200, 10, true, false)
		f.loop.Advance(2 * tick)
		_ = f.engine.StartTransition(1, 50, 0, true, false)
		f.loop.Advance(2 * time.Second)

		assert.Equal(t, []uint8{105, 110, 115, 50}, f.sink.levels[0])
	})

	t.Run("unchanged stable level: should not persist again", func(t *testing.T) {
		f := newFixture(t, 100)

		_ = f.engine.StartTransition(1, 100, 0, true, false)
		f.loop.Advance(0)

		f.store.AssertNotCalled(t, "SaveLevel", mock.Anything, mock.Anything)
	})

	t.Run("invalid endpoint: should return ErrInvalidEndpoint", func(t *testing.T) {
		f := newFixture(t, 100)

		assert.ErrorIs(t, f.engine.StartTransition(0, 10, 0, true, false), levelcontrol.ErrInvalidEndpoint)
		assert.ErrorIs(t, f.engine.StartTransition(5, 10, 0, true, false), levelcontrol.ErrInvalidEndpoint)
		assert.ErrorIs(t, f.engine.Stop(9, true), levelcontrol.ErrInvalidEndpoint)
	})
}

func Test_Stop(t *testing.T) {

	t.Run("without attribute update: should restore the last persisted level", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)
		_ = f.engine.StartTransition(1, 200, 10, true, false)
		f.loop.Advance(4 * tick)
		require.Equal(t, uint8(125), f.engine.CurrentLevel(1))

		// act
		require.NoError(t, f.engine.Stop(1, false))

		// assert
		assert.Equal(t, uint8(100), f.engine.CurrentLevel(1))
		assert.Equal(t, uint16(100), f.attr(1, models.AttrCurrentLevel))
		assert.False(t, f.engine.Active(1))
		f.loop.Advance(2 * time.Second)
		assert.Len(t, f.sink.levels[0], 5)
		f.store.AssertNotCalled(t, "SaveLevel", mock.Anything, mock.Anything)
		assert.Contains(t, f.j.events, "finished1")
	})

	t.Run("with attribute update: should keep and persist the interrupted level", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(125)).Return(nil).Once()
		_ = f.engine.StartTransition(1, 200, 10, true, false)
		f.loop.Advance(4 * tick)

		require.NoError(t, f.engine.Stop(1, true))

		assert.Equal(t, uint8(125), f.engine.CurrentLevel(1))
		assert.Equal(t, uint8(125), f.engine.StableLevel(1))
		assert.Zero(t, f.attr(1, models.AttrRemainingTime))
	})

	t.Run("nothing in flight: should do nothing", func(t *testing.T) {
		f := newFixture(t, 100)

		require.NoError(t, f.engine.Stop(1, true))

		assert.Empty(t, f.j.events)
	})
}

func Test_OnOffEffect(t *testing.T) {

	t.Run("off: should force the output to 0 and keep the stable level", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)

		// act
		f.engine.OnOffEffect(1, false)
		f.loop.Advance(0)

		// assert
		assert.Equal(t, []uint8{0}, f.sink.levels[0])
		assert.Equal(t, uint8(100), f.engine.CurrentLevel(1))
		assert.Equal(t, uint16(100), f.attr(1, models.AttrCurrentLevel))
		f.store.AssertNotCalled(t, "SaveLevel", mock.Anything, mock.Anything)
	})

	t.Run("on: should fade in from the minimum over the on/off transition time", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)
		_ = f.attrs.Write(1, models.AttrOnOffTransitionTime, 10)

		// act
		f.engine.OnOffEffect(1, true)
		f.loop.Advance(2 * time.Second)

		// assert
		levels := f.sink.levels[0]
		assert.Equal(t, uint8(6), levels[0])
		assert.Equal(t, uint8(100), levels[len(levels)-1])
		assert.Equal(t, uint16(100), f.attr(1, models.AttrCurrentLevel))
		assert.Equal(t, "finished1", f.j.events[len(f.j.events)-1])
	})

	t.Run("off with transition time: should fade out and end at 0", func(t *testing.T) {
		f := newFixture(t, 101)
		_ = f.attrs.Write(1, models.AttrOnOffTransitionTime, 5)

		f.engine.OnOffEffect(1, false)
		f.loop.Advance(2 * time.Second)

		assert.Equal(t, []uint8{91, 81, 71, 61, 51, 41, 31, 21, 11, 0}, f.sink.levels[0])
		assert.Equal(t, uint8(101), f.engine.StableLevel(1))
	})
}

func Test_LevelOnOffSideEffects(t *testing.T) {

	t.Run("descending to the minimum with on/off: should emit OFF", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(3), uint8(1)).Return(nil).Once()

		status := f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 3, Level: 0, WithOnOff: true})
		f.loop.Advance(0)

		assert.Equal(t, models.StatusHandled, status)
		assert.Equal(t, []string{"out2:1", "onoff3:false", "finished3"}, f.j.events)
	})

	t.Run("ascending from off with on/off: should emit ON before the first output", func(t *testing.T) {
		f := newFixture(t, 100)
		f.onOff.states[1] = models.StateOff
		f.store.On("SaveLevel", models.Endpoint(1), uint8(150)).Return(nil).Once()

		f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 1, Level: 150, WithOnOff: true})
		f.loop.Advance(0)

		assert.Equal(t, []string{"onoff1:true", "out0:150", "finished1"}, f.j.events)
	})

	t.Run("below the stable level from off with on/off: should emit ON and rise from the minimum", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)
		f.onOff.states[2] = models.StateOff
		f.store.On("SaveLevel", models.Endpoint(2), uint8(50)).Return(nil).Once()

		// act
		status := f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 2, Level: 50, TransitionTime: 10, WithOnOff: true})
		f.loop.Advance(5 * time.Second)

		// assert
		assert.Equal(t, models.StatusHandled, status)
		require.NotEmpty(t, f.j.events)
		assert.Equal(t, "onoff2:true", f.j.events[0])
		levels := f.sink.levels[1]
		require.NotEmpty(t, levels)
		assert.Equal(t, uint8(50), levels[len(levels)-1])
		for i := 1; i < len(levels); i++ {
			assert.Greater(t, levels[i], levels[i-1])
		}
		assert.Equal(t, uint8(50), f.engine.StableLevel(2))
	})

	t.Run("to the minimum from off with on/off: should stay dark", func(t *testing.T) {
		// arrange
		f := newFixture(t, 100)
		f.onOff.states[2] = models.StateOff
		f.store.On("SaveLevel", models.Endpoint(2), uint8(1)).Return(nil).Once()

		// act
		f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 2, Level: 0, TransitionTime: 10, WithOnOff: true})
		f.loop.Advance(5 * time.Second)

		// assert
		assert.Empty(t, f.sink.levels[1])
		assert.NotContains(t, f.j.events, "onoff2:true")
		assert.Equal(t, uint8(1), f.engine.StableLevel(2))
	})

	t.Run("descending without on/off: should not emit OFF", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(1)).Return(nil).Once()

		f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 1, Level: 1})
		f.loop.Advance(0)

		assert.Equal(t, []string{"out0:1", "finished1"}, f.j.events)
	})
}

func Test_ExecuteIfOff(t *testing.T) {

	t.Run("off without option: should skip the command", func(t *testing.T) {
		f := newFixture(t, 100)
		f.onOff.states[1] = models.StateOff

		status := f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 1, Level: 200})
		f.loop.Advance(time.Second)

		assert.Equal(t, models.StatusHandled, status)
		assert.Empty(t, f.j.events)
		assert.Equal(t, uint8(100), f.engine.StableLevel(1))
	})

	t.Run("delayed off with option mask: should update the level without output", func(t *testing.T) {
		f := newFixture(t, 100)
		f.onOff.states[1] = models.StateDelayedOff
		f.store.On("SaveLevel", models.Endpoint(1), uint8(200)).Return(nil).Once()

		status := f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 1, Level: 200, OptionsMask: 0x01})
		f.loop.Advance(time.Second)

		assert.Equal(t, models.StatusHandled, status)
		assert.Empty(t, f.sink.levels[0])
		assert.Equal(t, uint8(200), f.engine.StableLevel(1))
		assert.Equal(t, uint16(200), f.attr(1, models.AttrCurrentLevel))
	})

	t.Run("off with options attribute: should update the level without output", func(t *testing.T) {
		f := newFixture(t, 100)
		f.onOff.states[2] = models.StateOff
		_ = f.attrs.Write(2, models.AttrOptions, 0x01)
		f.store.On("SaveLevel", models.Endpoint(2), uint8(110)).Return(nil).Once()

		f.engine.HandleStep(models.StepCommand{Endpoint: 2, Direction: models.DirectionUp, StepSize: 10})
		f.loop.Advance(time.Second)

		assert.Empty(t, f.sink.levels[1])
		assert.Equal(t, uint8(110), f.engine.StableLevel(2))
	})

	t.Run("off with on/off modifier: should execute visibly", func(t *testing.T) {
		f := newFixture(t, 100)
		f.onOff.states[1] = models.StateOff
		f.store.On("SaveLevel", models.Endpoint(1), uint8(254)).Return(nil).Once()

		f.engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: models.DirectionUp, Rate: 0xFF, WithOnOff: true})
		f.loop.Advance(0)

		assert.Equal(t, []uint8{254}, f.sink.levels[0])
	})
}

func Test_HandleMove(t *testing.T) {

	t.Run("should move at the given rate to the maximum", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(254)).Return(nil).Once()

		status := f.engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: models.DirectionUp, Rate: 50})
		f.loop.Advance(0)

		assert.Equal(t, models.StatusHandled, status)
		// 154 units at 50/s is 3s, steps of 3 finish early
		assert.Equal(t, []uint8{103}, f.sink.levels[0])
		assert.Equal(t, uint16(26), f.attr(1, models.AttrRemainingTime))

		f.loop.Advance(4 * time.Second)
		assert.Equal(t, uint8(254), f.engine.StableLevel(1))
	})

	t.Run("default rate attribute: should use it", func(t *testing.T) {
		f := newFixture(t, 200)
		_ = f.attrs.Write(1, models.AttrDefaultMoveRate, 199)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(1)).Return(nil).Once()

		f.engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: models.DirectionDown, Rate: 0xFF})
		f.loop.Advance(0)

		// 199 units at 199/s is 10ds, 20 ticks of 10
		assert.Equal(t, []uint8{190}, f.sink.levels[0])
		f.loop.Advance(2 * time.Second)
		assert.Equal(t, uint8(1), f.engine.StableLevel(1))
	})

	t.Run("zero rate: should do nothing", func(t *testing.T) {
		f := newFixture(t, 100)

		status := f.engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: models.DirectionUp, Rate: 0})
		f.loop.Advance(time.Second)

		assert.Equal(t, models.StatusHandled, status)
		assert.Empty(t, f.j.events)
	})

	t.Run("invalid direction or endpoint: should be unsupported", func(t *testing.T) {
		f := newFixture(t, 100)

		assert.Equal(t, models.StatusUnsupported, f.engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: 7, Rate: 10}))
		assert.Equal(t, models.StatusUnsupported, f.engine.HandleStep(models.StepCommand{Endpoint: 1, Direction: 2, StepSize: 10}))
		assert.Equal(t, models.StatusUnsupported, f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 6, Level: 10}))
		assert.Equal(t, models.StatusUnsupported, f.engine.HandleStop(models.StopCommand{Endpoint: 0}))
	})

	t.Run("default rate unreadable: should move instantly", func(t *testing.T) {
		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		cfg := config.Defaults()
		loop := concurrency.NewEventLoop(logger)
		attrs := mocks.NewMockLevelcontrolAttributeStore(t)
		attrs.On("Read", models.Endpoint(1), models.AttrDefaultMoveRate).Return(uint16(0), errors.New("i/o error"))
		attrs.On("Write", models.Endpoint(1), mock.Anything, mock.Anything).Return(nil)
		store := mocks.NewMockLevelcontrolLevelPersister(t)
		store.On("SaveLevel", models.Endpoint(1), uint8(1)).Return(nil).Once()
		sink := &recordingSink{j: &journal{}, levels: map[models.Channel][]uint8{}}
		engine := levelcontrol.NewEngine(logger, cfg, loop, attrs, sink, store)

		// act
		status := engine.HandleMove(models.MoveCommand{Endpoint: 1, Direction: models.DirectionDown, Rate: 0xFF})
		loop.Advance(0)

		// assert
		assert.Equal(t, models.StatusHandled, status)
		assert.Equal(t, []uint8{1}, sink.levels[0])
	})
}

func Test_HandleStep(t *testing.T) {

	t.Run("should clamp at the bounds", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(1)).Return(nil).Once()
		f.store.On("SaveLevel", models.Endpoint(1), uint8(254)).Return(nil).Once()

		f.engine.HandleStep(models.StepCommand{Endpoint: 1, Direction: models.DirectionDown, StepSize: 200})
		f.loop.Advance(0)
		f.engine.HandleStep(models.StepCommand{Endpoint: 1, Direction: models.DirectionUp, StepSize: 255})
		f.loop.Advance(0)

		assert.Equal(t, []uint8{1, 254}, f.sink.levels[0])
	})
}

func Test_HandleStop(t *testing.T) {

	t.Run("should keep the level reached", func(t *testing.T) {
		f := newFixture(t, 100)
		f.store.On("SaveLevel", models.Endpoint(1), uint8(110)).Return(nil).Once()
		f.engine.HandleSetLevel(models.SetLevelCommand{Endpoint: 1, Level: 200, TransitionTime: 10})
		f.loop.Advance(tick)

		status := f.engine.HandleStop(models.StopCommand{Endpoint: 1})
		f.loop.Advance(time.Second)

		assert.Equal(t, models.StatusHandled, status)
		assert.Equal(t, []uint8{105, 110}, f.sink.levels[0])
		assert.Equal(t, uint8(110), f.engine.StableLevel(1))
	})
}
