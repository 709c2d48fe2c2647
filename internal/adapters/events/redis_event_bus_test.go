package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundbrave/search-service/internal/domain/entities"
)

func TestDecodeEvent(t *testing.T) {
	event := entities.NewEntityChangedEvent(entities.EntityTypePost, "post-1", entities.EntityChangeHidden)
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := decodeEvent(string(payload))
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, entities.EntityTypePost, decoded.EntityType)
	assert.True(t, decoded.RemovesContent())
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := decodeEvent("not json")
	assert.Error(t, err)

	_, err = decodeEvent(`{"id":"e1","entity_id":"c1"}`)
	assert.Error(t, err)
}
