package backend

import (
	"fmt"

	"cashflow/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		OwnerID: appConfig.OwnerID,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPRPCQueue: appConfig.AMQPRPCQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case AMQPBackend:
		if c.OwnerID == "" {
			return fmt.Errorf("owner id is required for amqp backend")
		}
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp backend")
		}
		if c.AMQPExchange == "" {
			return fmt.Errorf("AMQP exchange is required for amqp backend")
		}
		if c.AMQPRPCQueue == "" {
			return fmt.Errorf("AMQP RPC queue is required for amqp backend")
		}

	case MemoryBackend:
		// The in-process replica needs no wiring; a missing owner id
		// falls back to a development default.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, AMQPBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
