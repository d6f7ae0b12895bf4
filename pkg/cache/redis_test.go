package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sasm-ims-api/pkg/config"
)

func TestOptions(t *testing.T) {
	opts := Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, time.Second, opts.ReadTimeout)
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
