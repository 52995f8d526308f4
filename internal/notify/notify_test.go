package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	Success(c, "Listing %q published", "House")
	Warning(c, "failed to upload %s", "b.jpg")

	notices := c.Notices()
	assert.Equal(t, []Notice{
		{Level: LevelSuccess, Message: `Listing "House" published`},
		{Level: LevelWarning, Message: "failed to upload b.jpg"},
	}, notices)
	assert.True(t, c.HasLevel(LevelWarning))
	assert.False(t, c.HasLevel(LevelError))

	notices[0].Message = "changed"
	assert.Equal(t, `Listing "House" published`, c.Notices()[0].Message)
}
