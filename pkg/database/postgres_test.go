package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sasm-ims-api/pkg/config"
)

func TestDSNPrefersURL(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{URL: "postgres://u:p@db:5432/sasm?sslmode=disable", Host: "ignored"})
	assert.Equal(t, "postgres://u:p@db:5432/sasm?sslmode=disable", dsn)
}

func TestDSNFromParts(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "secret", Name: "sasm_ims", SSLMode: "disable"})
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=sasm_ims sslmode=disable", dsn)
}
