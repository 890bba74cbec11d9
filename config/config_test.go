package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/matching"
)

const sample = `
env: test
log:
  level: debug
outbox:
  dir: /tmp/outbox
  scan_interval: 100ms
kafka:
  enabled: true
  driver: sarama
  brokers: ["b1:9092", "b2:9092"]
  topic: trades
engine:
  expiry_interval: 2s
instruments:
  - symbol: BTC-USD
    step_size: "0.0001"
  - symbol: ETH-USD
    step_size: "0.01"
fees:
  - id: 1
    maker: "0.001"
    taker: "0.002"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 100*time.Millisecond, cfg.Outbox.ScanInterval)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "sarama", cfg.Kafka.Driver)
	assert.Equal(t, 2*time.Second, cfg.Engine.ExpiryInterval)
	assert.Equal(t, 1024, cfg.Engine.QueueSize)
	assert.Equal(t, ":9090", cfg.Admin.Addr)
	assert.Equal(t, matching.SelfMatchMatch, cfg.SelfMatchAction())

	require.Len(t, cfg.Instruments, 2)
	step, err := cfg.Instruments[0].Step()
	require.NoError(t, err)
	assert.Equal(t, "0.0001", step.String())

	maker, taker, err := cfg.Fees[0].Rates()
	require.NoError(t, err)
	assert.Equal(t, "0.001", maker.String())
	assert.Equal(t, "0.002", taker.String())
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"no instruments": "env: test\n",
		"zero step": `
instruments:
  - symbol: X
    step_size: "0"
`,
		"duplicate symbol": `
instruments:
  - symbol: X
    step_size: "1"
  - symbol: X
    step_size: "1"
`,
		"kafka without brokers": `
kafka:
  enabled: true
instruments:
  - symbol: X
    step_size: "1"
`,
		"self match policy": `
engine:
  self_match: cancel_newest
instruments:
  - symbol: X
    step_size: "1"
`,
		"bad fee": `
instruments:
  - symbol: X
    step_size: "1"
fees:
  - id: 1
    maker: abc
    taker: "0"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
