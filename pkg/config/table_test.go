package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableConfigListFallsBackToDefault(t *testing.T) {
	list := WithDefault(EngineOptions{BlockCacheGB: 1})
	cfg, ok := list.For("db0", "unlisted_table")
	require.True(t, ok)
	require.Equal(t, 1.0, cfg.EngineOptions.BlockCacheGB)
}

func TestTableConfigListSpecificEntryWins(t *testing.T) {
	list := TableConfigList{
		Tables: map[string]TableConfig{
			DefaultTableName:          {Table: DefaultTableName, EngineOptions: EngineOptions{BlockCacheGB: 1}},
			tableConfigKey("db0", "t"): {Database: "db0", Table: "t", EngineOptions: EngineOptions{BlockCacheGB: 4}},
		},
	}
	cfg, ok := list.For("db0", "t")
	require.True(t, ok)
	require.Equal(t, 4.0, cfg.EngineOptions.BlockCacheGB)
}

func TestTableConfigListMissingEverything(t *testing.T) {
	list := TableConfigList{Tables: map[string]TableConfig{}}
	_, ok := list.For("db0", "t")
	require.False(t, ok)
}
