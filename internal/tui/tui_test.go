package tui_test

import (
	"testing"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
	"github.com/wheelibin/striplight/internal/tui"
)

func update(t *testing.T, m tui.Model, msgs ...tea.Msg) tui.Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(tui.Model)
		require.True(t, ok)
	}
	return m
}

func Test_Update(t *testing.T) {

	t.Run("should start with one idle row per endpoint", func(t *testing.T) {
		// arrange / act
		m := tui.NewModel(2)

		// assert
		assert.Equal(t, []table.Row{
			{"1", "false", "OFF", "0", "0", "0.0s", "none"},
			{"2", "false", "OFF", "0", "0", "0.0s", "none"},
		}, m.Rows())
	})

	t.Run("should fold reports into the endpoint rows", func(t *testing.T) {
		// arrange
		m := tui.NewModel(2)

		// act
		m = update(t, m,
			tui.ReportMsg{Kind: constants.ReportTopicAttribute, Attribute: &models.AttributeChange{Endpoint: 2, Name: "on_off", Value: 1}},
			tui.ReportMsg{Kind: constants.ReportTopicAttribute, Attribute: &models.AttributeChange{Endpoint: 2, Name: "current_level", Value: 180}},
			tui.ReportMsg{Kind: constants.ReportTopicAttribute, Attribute: &models.AttributeChange{Endpoint: 2, Name: "remaining_time", Value: 25}},
			tui.ReportMsg{Kind: constants.ReportTopicState, State: &models.StateReport{Endpoint: 2, State: "TIMED_ON"}},
			tui.ReportMsg{Kind: constants.ReportTopicOutput, Output: &models.OutputReport{Channel: 1, Level: 120}},
			tui.ReportMsg{Kind: constants.ReportTopicEffect, Effect: &models.EffectReport{Channel: 1, Effect: "breathe", Active: true}},
		)

		// assert
		assert.Equal(t, table.Row{"2", "true", "TIMED_ON", "180", "120", "2.5s", "breathe"}, m.Rows()[1])
		assert.Equal(t, table.Row{"1", "false", "OFF", "0", "0", "0.0s", "none"}, m.Rows()[0])
	})

	t.Run("should show aux effects in the status line rather than a row", func(t *testing.T) {
		// arrange
		m := tui.NewModel(1)

		// act
		m = update(t, m,
			tui.ReportMsg{Kind: constants.ReportTopicEffect, Effect: &models.EffectReport{Channel: constants.AuxChannel, Effect: "reboot", Active: true}},
			tui.ReportMsg{Kind: constants.ReportTopicOutput, Output: &models.OutputReport{Channel: constants.AuxChannel, Level: 254}},
			tui.ConnectionMsg{Connected: true, URL: "http://pi:8089/events"},
		)

		// assert
		assert.Len(t, m.Rows(), 1)
		assert.Contains(t, m.View(), "aux: reboot")
		assert.Contains(t, m.View(), "connected to http://pi:8089/events")
	})

	t.Run("should quit on q", func(t *testing.T) {
		// arrange
		m := tui.NewModel(1)

		// act
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

		// assert
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})
}
