package reports_test

import (
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheelibin/striplight/internal/constants"
	"github.com/wheelibin/striplight/internal/models"
	"github.com/wheelibin/striplight/internal/reports"
)

func receive(t *testing.T, ch chan interface{}) models.Report {
	t.Helper()
	select {
	case msg := <-ch:
		r, ok := msg.(models.Report)
		require.True(t, ok)
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for report")
	}
	return models.Report{}
}

func Test_Hub(t *testing.T) {

	t.Run("should deliver only the subscribed kinds", func(t *testing.T) {
		// arrange
		logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
		hub := reports.NewHub(logger, 8)
		defer hub.Shutdown()
		states := hub.Subscribe(constants.ReportTopicState)
		all := hub.Subscribe()

		// act
		hub.Publish(models.Report{Kind: constants.ReportTopicOutput, Output: &models.OutputReport{Channel: 1, Level: 20}})
		hub.Publish(models.Report{Kind: constants.ReportTopicState, State: &models.StateReport{Endpoint: 2, State: "ON"}})

		// assert
		r := receive(t, states)
		assert.Equal(t, constants.ReportTopicState, r.Kind)
		assert.Equal(t, "ON", r.State.State)

		first := receive(t, all)
		second := receive(t, all)
		assert.Equal(t, constants.ReportTopicOutput, first.Kind)
		assert.Equal(t, constants.ReportTopicState, second.Kind)

		hub.Unsubscribe(states, constants.ReportTopicState)
		hub.Unsubscribe(all)
	})
}
