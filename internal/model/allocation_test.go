package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationConfigs_UnmarshalText(t *testing.T) {
	var configs AllocationConfigs
	err := configs.UnmarshalText([]byte("A|Bitcoin Allocation|0.49|BTC; B|Ethereum Allocation|0.267|eth;C|Stablecoin Allocation|0.243|STABLE;"))
	require.NoError(t, err)

	require.Len(t, configs, 3)
	assert.Equal(t, "Ethereum Allocation", configs[1].Name)
	assert.Equal(t, AssetETH, configs[1].Asset)
	assert.Equal(t, "1", configs.TotalWeight().String())
}

func TestAllocationConfigs_UnmarshalTextErrors(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"missing part":    "A|Bitcoin|0.5",
		"lowercase key":   "a|Bitcoin|0.5|BTC",
		"duplicate key":   "A|Bitcoin|0.5|BTC;A|Ether|0.5|ETH",
		"bad weight":      "A|Bitcoin|half|BTC",
		"negative weight": "A|Bitcoin|-0.5|BTC",
		"unknown asset":   "A|Doge|0.5|DOGE",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var configs AllocationConfigs
			assert.Error(t, configs.UnmarshalText([]byte(raw)))
		})
	}
}

func TestAllocationLastEntry(t *testing.T) {
	_, ok := Allocation{}.LastEntry()
	assert.False(t, ok)

	entry, ok := Allocation{History: []AllocationHistoryEntry{{Notes: "first"}, {Notes: "second"}}}.LastEntry()
	require.True(t, ok)
	assert.Equal(t, "second", entry.Notes)

	assert.NotNil(t, Allocation{}.View().History)
}
