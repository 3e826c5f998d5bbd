package config

import (
	"testing"

	"github.com/algo-data-platform/laser/pkg/dispatcher"
	"github.com/stretchr/testify/require"
)

func TestPushNodeConfigAppliesOnceAndSuppressesUnchanged(t *testing.T) {
	w := New(dispatcher.NewTrafficRegistry())
	notified := 0
	w.Subscribe(func() { notified++ })

	require.True(t, w.PushNodeConfig(NodeConfig{Version: 1, DefaultRateBytesPerSec: 10}))
	require.Equal(t, 1, notified)
	require.EqualValues(t, 10, w.NodeConfig().DefaultRateBytesPerSec)

	require.False(t, w.PushNodeConfig(NodeConfig{Version: 1, DefaultRateBytesPerSec: 999}),
		"same version must suppress reopen even if the payload differs")
	require.Equal(t, 1, notified)
	require.EqualValues(t, 10, w.NodeConfig().DefaultRateBytesPerSec)

	require.True(t, w.PushNodeConfig(NodeConfig{Version: 2, DefaultRateBytesPerSec: 999}))
	require.Equal(t, 2, notified)
}

func TestPushTableConfigList(t *testing.T) {
	w := New(dispatcher.NewTrafficRegistry())
	list := WithDefault(EngineOptions{BlockCacheGB: 2})
	list.Version = 1
	require.True(t, w.PushTableConfigList(list))

	cfg, ok := w.TableConfig("db0", "whatever")
	require.True(t, ok)
	require.Equal(t, 2.0, cfg.EngineOptions.BlockCacheGB)

	require.False(t, w.PushTableConfigList(list))
}

func TestPushTrafficRestrictionFansOutToRegistry(t *testing.T) {
	registry := dispatcher.NewTrafficRegistry()
	w := New(registry)

	doc := TrafficRestrictionDoc{
		Version: 1,
		Rules: map[string]dispatcher.TrafficRestrictionConfig{
			"db0/t": {SingleOperationLimits: map[string]int{"get": 50}},
		},
	}
	require.True(t, w.PushTrafficRestriction(doc))

	admitter := dispatcher.NewAdmitter(registry)
	err := admitter.AdmitSingle("db0", "t", "set")
	require.Error(t, err, "no single_operation_limits rule was pushed for set")
}
