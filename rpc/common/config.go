package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// EngineType names a storage engine for a hosted instance
type EngineType string

const (
	EngineMaple  EngineType = "maple"
	EngineSQLite EngineType = "sqlite"
)

// ParseEngineType validates an engine name
func ParseEngineType(s string) (EngineType, error) {
	switch EngineType(strings.ToLower(strings.TrimSpace(s))) {
	case EngineMaple:
		return EngineMaple, nil
	case EngineSQLite:
		return EngineSQLite, nil
	default:
		return "", fmt.Errorf("invalid engine: %s (expected one of: maple, sqlite)", s)
	}
}

// ServerInstance describes one network tables instance hosted by the server
type ServerInstance struct {
	// InstanceID is the ID clients use to address the instance
	InstanceID uint64
	// Engine is the storage engine of the instance
	Engine EngineType
}

// ServerConfig holds all configuration parameters of the RPC server.
type ServerConfig struct {
	// Instances hosted by this server
	Instances []ServerInstance

	// Identity is the network identity of the server
	Identity string

	// DataDir holds one persistence file per instance. Empty disables persistence.
	DataDir string

	// UpdateRate is the interval of the periodic flush (0 = off)
	UpdateRate time.Duration

	// TimeoutSecond is the read/write timeout of a connection
	TimeoutSecond int64

	// Endpoint is the address the RPC transport listens on
	Endpoint string

	// MetricsEndpoint serves /metrics for non-http transports (empty = off)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	addSection("Network Tables")
	addField("Identity", c.Identity)
	if c.UpdateRate > 0 {
		addField("Update Rate", c.UpdateRate.String())
	} else {
		addField("Update Rate", "off")
	}
	if c.DataDir != "" {
		addField("Data Directory", c.DataDir)
	} else {
		addField("Data Directory", "none (in memory)")
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Instances")
	for _, inst := range c.Instances {
		addField(strconv.FormatUint(inst.InstanceID, 10), string(inst.Engine))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// SocketConf holds buffer sizes of socket based transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ClientTransportConfig configures the client side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf             SocketConf
	TCPConf                TCPConf
}

// ClientConfig holds all configuration parameters of the RPC client
type ClientConfig struct {
	// Identity announced to the server
	Identity      string
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Identity", c.Identity)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
