package exec

import (
	"testing"

	"github.com/niklata/ncrond/config"
	"github.com/niklata/ncrond/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawner_SpawnsPlainCommand(t *testing.T) {
	s := NewSpawner(nil, nil)
	j := core.NewJob(1)
	j.Command = "/bin/true"

	require.NoError(t, s.Spawn(j))
}

func TestSpawner_RejectsUnterminatedQuoteInArgs(t *testing.T) {
	s := NewSpawner(nil, nil)
	j := core.NewJob(2)
	j.Command = "/bin/true"
	j.Args = `"unterminated`

	err := s.Spawn(j)
	assert.Error(t, err)
}

func TestSpawner_UnknownCommandFailsToStart(t *testing.T) {
	s := NewSpawner(nil, nil)
	j := core.NewJob(3)
	j.Command = "/no/such/binary-ncrond-test"

	err := s.Spawn(j)
	assert.Error(t, err)
}

func TestSpawner_AppliesRLimitExtraWithoutError(t *testing.T) {
	extras := map[int]*config.JobExtra{
		4: {RLimits: map[string]uint64{"nofile": 256}},
	}
	s := NewSpawner(extras, nil)
	j := core.NewJob(4)
	j.Command = "/bin/true"

	require.NoError(t, s.Spawn(j))
}
