package component_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breadcrumbs/breadcrumbs-go/pkg/component"
	"github.com/breadcrumbs/breadcrumbs-go/pkg/config"
)

func nopFactory(string, config.Section) (component.Component, error) {
	return &mockComponent{}, nil
}

func TestRegistryRegister(t *testing.T) {
	reg := component.NewRegistry()

	require.NoError(t, reg.Register("Producer", nopFactory))
	require.NoError(t, reg.Register("Consumer", nopFactory))

	assert.ErrorIs(t, reg.Register("Producer", nopFactory), component.ErrDuplicateKind)
	assert.ErrorIs(t, reg.Register("", nopFactory), component.ErrInvalidFactory)
	assert.ErrorIs(t, reg.Register("Nil", nil), component.ErrInvalidFactory)

	assert.Equal(t, []string{"Consumer", "Producer"}, reg.Kinds())
	assert.True(t, reg.Has("Producer"))
	assert.False(t, reg.Has("producer"))
}

func TestRegistryInstantiate(t *testing.T) {
	reg := component.NewRegistry()

	var gotName string
	var gotTopic string
	require.NoError(t, reg.Register("Producer", func(name string, s config.Section) (component.Component, error) {
		gotName = name
		topic, err := s.RequireString("msg_id")
		if err != nil {
			return nil, err
		}
		gotTopic = topic
		return &mockComponent{}, nil
	}))

	c, err := reg.Instantiate("Producer", "p1", config.NewSection(map[string]any{"msg_id": "TICK"}))
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, "p1", gotName)
	assert.Equal(t, "TICK", gotTopic)

	_, err = reg.Instantiate("Producer", "p2", config.NewSection(nil))
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestRegistryUnknownKindListsKinds(t *testing.T) {
	reg := component.NewRegistry()
	require.NoError(t, reg.Register("Server", nopFactory))
	require.NoError(t, reg.Register("Client", nopFactory))

	_, err := reg.Instantiate("Bogus", "x", config.NewSection(nil))
	require.ErrorIs(t, err, component.ErrUnknownKind)
	assert.Contains(t, err.Error(), `"Bogus"`)
	assert.Contains(t, err.Error(), "Client, Server")
}

func TestRegistryFactoryErrors(t *testing.T) {
	reg := component.NewRegistry()
	boom := errors.New("boom")

	require.NoError(t, reg.Register("Broken", func(string, config.Section) (component.Component, error) {
		return nil, boom
	}))
	require.NoError(t, reg.Register("Empty", func(string, config.Section) (component.Component, error) {
		return nil, nil
	}))

	_, err := reg.Instantiate("Broken", "b", config.NewSection(nil))
	assert.ErrorIs(t, err, boom)

	_, err = reg.Instantiate("Empty", "e", config.NewSection(nil))
	assert.ErrorIs(t, err, component.ErrInvalidFactory)
}
