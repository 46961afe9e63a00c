package contextbuilder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haasonsaas/agentrt/pkg/models"
)

func TestBuildDynamicOverlayAlwaysIncludesP1(t *testing.T) {
	signal := models.Signal{Mode: models.ModeExecute, Genre: models.GenreDirect}
	rc := RuntimeContext{Timestamp: time.Now(), SessionID: "sess-1", Channel: "web"}
	out := BuildDynamicOverlay(signal, rc, Overlay{}, 0)
	assert.Contains(t, out, "Signal:")
	assert.Contains(t, out, "sess-1")
}

func TestBuildDynamicOverlayIncludesLowerTiersWhenBudgetAllows(t *testing.T) {
	signal := models.Signal{Mode: models.ModeAssist}
	rc := RuntimeContext{SessionID: "sess-1"}
	ov := Overlay{
		TaskList:             "task list content",
		CommunicationProfile: "be terse",
	}
	out := BuildDynamicOverlay(signal, rc, ov, 1000)
	assert.Contains(t, out, "task list content")
	assert.Contains(t, out, "be terse")
}

func TestBuildDynamicOverlayTruncatesOversizedBlock(t *testing.T) {
	signal := models.Signal{}
	rc := RuntimeContext{}
	longText := strings.Repeat("word ", 500)
	ov := Overlay{TaskList: longText}
	out := BuildDynamicOverlay(signal, rc, ov, 100)
	assert.Contains(t, out, truncationMarker)
}

func TestFitBlocksRespectsBudget(t *testing.T) {
	blocks := []Block{
		{Name: "a", Content: "one two three"},
		{Name: "b", Content: "four five six"},
	}
	out, spent := fitBlocks(blocks, 3)
	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, spent, 3)
}

func TestFitBlocksZeroBudgetReturnsNothing(t *testing.T) {
	blocks := []Block{{Name: "a", Content: "some content"}}
	out, spent := fitBlocks(blocks, 0)
	assert.Nil(t, out)
	assert.Equal(t, 0, spent)
}
