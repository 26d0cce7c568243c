package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":4000", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 10.0, cfg.DeliveryCharge)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.SMTPEnabled())
	assert.False(t, cfg.BootstrapAdmin())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":8080"
storage:
  driver: mongo
  mongo_uri: mongodb://localhost:27017
kafka:
  brokers: [k1:9092]
auth:
  jwt_secret: from-file
payments:
  delivery_charge: 0
  currency: usd
admin:
  email: admin@shop.example
  password: pass
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("PORT", "5000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "mongo", cfg.Storage)
	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0.0, cfg.DeliveryCharge)
	assert.Equal(t, "usd", cfg.Currency)
	assert.True(t, cfg.BootstrapAdmin())
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := Load("")
	assert.Error(t, err, "mongo without uri")

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	_, err = Load("")
	assert.Error(t, err, "razorpay key without secret")

	_, err = Load(writeFile(t, "http: [broken"))
	assert.Error(t, err)
}
