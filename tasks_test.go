package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeedFile(t *testing.T) {
	data := []byte(`
tasks:
  - name: run 2km
    reward: 10
  - name: read 20 pages
    reward: 5
  - name: sleep before midnight
    reward: 0
shop_items:
  - name: avatar frame
    cost: 50
    description: A golden frame.
`)
	seed, err := parseSeedFile(data)
	require.NoError(t, err)
	require.Len(t, seed.Tasks, 3)
	assert.Equal(t, Task{Name: "run 2km", Reward: 10}, seed.Tasks[0])
	assert.Equal(t, Task{Name: "sleep before midnight", Reward: 0}, seed.Tasks[2])
	require.Len(t, seed.ShopItems, 1)
	assert.Equal(t, int64(50), seed.ShopItems[0].Cost)
}

func TestParseSeedFile_Rejections(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"duplicate task", "tasks:\n  - name: run\n    reward: 1\n  - name: run\n    reward: 2\n"},
		{"negative reward", "tasks:\n  - name: run\n    reward: -5\n"},
		{"empty task name", "tasks:\n  - name: \"\"\n    reward: 1\n"},
		{"negative item cost", "shop_items:\n  - name: frame\n    cost: -1\n"},
		{"empty item name", "shop_items:\n  - name: \"\"\n    cost: 10\n"},
		{"not yaml", "{{{{"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSeedFile([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadSeedFile_MissingFile(t *testing.T) {
	_, err := loadSeedFile("does-not-exist.yaml")
	assert.Error(t, err)
}
