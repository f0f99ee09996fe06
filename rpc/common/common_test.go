package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeJSON(t *testing.T) {
	for mt := MsgTSuccess; mt <= msgTLast; mt++ {
		t.Run(mt.String(), func(t *testing.T) {
			data, err := json.Marshal(mt)
			require.NoError(t, err)
			assert.Equal(t, `"`+mt.String()+`"`, string(data))

			var decoded MessageType
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, mt, decoded)
		})
	}

	var mt MessageType
	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &mt))
	assert.Error(t, json.Unmarshal([]byte(`3`), &mt))
	assert.Equal(t, "unknown", MessageType(200).String())
}

func TestMessageFactories(t *testing.T) {
	// names travel as bytes so they survive any serializer unchanged
	resolve := NewResolveRequest("/a\xffb")
	assert.Equal(t, MsgTNTResolve, resolve.MsgType)
	assert.Equal(t, []byte("/a\xffb"), resolve.Value)

	list := NewListRequest("/foo", 0x06)
	assert.Equal(t, []byte("/foo"), list.Value)
	assert.Equal(t, uint64(0x06), list.Arg)

	hello := NewHelloRequest("dashboard", 0x0300)
	assert.Equal(t, "dashboard", hello.Key)
	assert.Equal(t, uint64(0x0300), hello.Arg)

	resp := NewSetValueResponse(false, assert.AnError)
	assert.Equal(t, MsgTNTSetValue, resp.MsgType)
	assert.Equal(t, assert.AnError.Error(), resp.Err)
	assert.False(t, resp.Ok)
}

func TestParseEngineType(t *testing.T) {
	e, err := ParseEngineType(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, EngineSQLite, e)

	e, err = ParseEngineType("maple")
	require.NoError(t, err)
	assert.Equal(t, EngineMaple, e)

	_, err = ParseEngineType("bolt")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, logger.WARNING, lvl)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
	assert.Error(t, InitLoggers("verbose"))
}

func TestConfigString(t *testing.T) {
	server := ServerConfig{
		Instances:  []ServerInstance{{InstanceID: 7, Engine: EngineSQLite}},
		Identity:   "robot",
		UpdateRate: 100 * time.Millisecond,
		Endpoint:   "0.0.0.0:8080",
		LogLevel:   "info",
	}
	out := server.String()
	assert.Contains(t, out, "robot")
	assert.Contains(t, out, "100ms")
	assert.Contains(t, out, "none (in memory)")
	assert.Regexp(t, `7\s+: sqlite`, out)

	client := ClientConfig{
		Identity:  "dashboard",
		Transport: ClientTransportConfig{Endpoints: []string{"a:1", "b:2"}},
	}
	out = client.String()
	assert.Contains(t, out, "dashboard")
	assert.Contains(t, out, "b:2")
	assert.Regexp(t, `Connections Per Endpoint\s*: 1`, out)
}
