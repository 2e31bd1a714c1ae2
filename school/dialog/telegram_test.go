package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coretelegram "github.com/m3rciful/schoolbot/core/telegram"
)

func TestRegisterCommandsHidesOperatorCommands(t *testing.T) {
	reg := coretelegram.NewRegistry()
	require.NoError(t, RegisterCommands(reg))

	assert.Len(t, reg.ListCommands(false), 4)
	visible := reg.ListCommands(true)
	require.Len(t, visible, 2)
	assert.Equal(t, "admin", visible[0].Text)
	assert.Equal(t, "start", visible[1].Text)

	require.Error(t, RegisterCommands(reg))
}
