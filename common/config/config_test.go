package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfig_LoadFromEnv(t *testing.T) {
	cfg := DatabaseConfig{Host: "localhost", Port: 5432, Database: "hrbot", SSLMode: "disable"}
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "hr")
	t.Setenv("DB_MAX_CONNS", "not-a-number")
	cfg.LoadFromEnv("DB")

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "hr", cfg.Database)
	assert.Equal(t, 0, cfg.MaxConns)
	assert.Equal(t, time.Duration(0), cfg.ConnMaxLifetime)
	assert.Equal(t, "host=db.internal port=6543 user= password= dbname=hr sslmode=disable", cfg.GetDSN())
}

func TestRedisAndMQTTConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	var r RedisConfig
	r.LoadFromEnv("REDIS")
	assert.Equal(t, "cache:6380", r.Addr)
	assert.Equal(t, 2, r.DB)

	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "5")
	m := MQTTConfig{QoS: 1}
	m.LoadFromEnv("MQTT")
	assert.Equal(t, "tcp://broker:1883", m.Broker)
	assert.Equal(t, byte(1), m.QoS, "out-of-range QoS is ignored")
}
