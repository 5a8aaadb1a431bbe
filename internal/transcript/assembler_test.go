package transcript

import (
	"testing"

	"character-chat/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pirate() *models.Character {
	return &models.Character{
		ID:           "pirate",
		Name:         "Captain Rook",
		BasePrompt:   "You are a pirate.",
		GreetingText: "Ahoy!",
	}
}

func TestAssembleEmptyHistory(t *testing.T) {
	turns, err := Assemble(pirate(), nil, "Hello")
	require.NoError(t, err)

	assert.Equal(t, []Turn{
		{Role: TurnSystem, Content: "You are a pirate."},
		{Role: TurnAssistant, Content: "Ahoy!"},
		{Role: TurnUser, Content: "Hello"},
	}, turns)
}

func TestAssembleKeepsHistoryOrderAndMapsRoles(t *testing.T) {
	history := []models.Message{
		{ID: "1", Content: "Hello", Role: models.RoleUser},
		{ID: "2", Content: "Arr, greetings matey", Role: models.RoleModel},
		{ID: "3", Content: "Where is the treasure?", Role: models.RoleUser},
		{ID: "4", Content: "Buried, of course", Role: models.RoleModel},
	}

	turns, err := Assemble(pirate(), history, "Can I have some?")
	require.NoError(t, err)
	require.Len(t, turns, len(history)+3)

	assert.Equal(t, TurnSystem, turns[0].Role)
	assert.Equal(t, TurnAssistant, turns[1].Role)
	for i, msg := range history {
		want, _ := RoleFor(msg.Role)
		assert.Equal(t, want, turns[i+2].Role)
		assert.Equal(t, msg.Content, turns[i+2].Content)
	}
	assert.Equal(t, Turn{Role: TurnUser, Content: "Can I have some?"}, turns[len(turns)-1])
}

func TestAssembleAcceptsEmptyInput(t *testing.T) {
	turns, err := Assemble(pirate(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, Turn{Role: TurnUser, Content: ""}, turns[2])
}

func TestAssembleRejectsUnknownRole(t *testing.T) {
	history := []models.Message{{ID: "x", Content: "hm", Role: models.MessageRole("narrator")}}

	turns, err := Assemble(pirate(), history, "Hello")
	assert.Nil(t, turns)
	assert.ErrorIs(t, err, models.ErrUnknownRole)
}

func TestAssembleRequiresCharacter(t *testing.T) {
	_, err := Assemble(nil, nil, "Hello")
	assert.ErrorIs(t, err, ErrNoCharacter)
}

func TestRoleFor(t *testing.T) {
	role, err := RoleFor(models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, TurnUser, role)

	role, err = RoleFor(models.RoleModel)
	require.NoError(t, err)
	assert.Equal(t, TurnAssistant, role)

	_, err = RoleFor("")
	assert.ErrorIs(t, err, models.ErrUnknownRole)
}
