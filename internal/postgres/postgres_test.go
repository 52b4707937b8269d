package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigString(t *testing.T) {
	tests := []struct {
		name     string
		conf     Config
		expected string
	}{
		{
			name:     "defaults",
			conf:     Config{},
			expected: "host=127.0.0.1 dbname=postgres port=5432 sslmode=prefer",
		},
		{
			name:     "credentials",
			conf:     Config{Host: "db", DBName: "doginals", User: "doge", Password: "wow"},
			expected: "host=db dbname=doginals port=5432 sslmode=prefer user=doge password=wow",
		},
		{
			name:     "url wins",
			conf:     Config{Host: "db", URL: "postgres://x@y/z"},
			expected: "postgres://x@y/z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.conf.String())
		})
	}
}

func TestConfigMigrateURL(t *testing.T) {
	conf := Config{Host: "db", Port: "6432", DBName: "doginals", User: "doge", Password: "much wow", SSLMode: "disable"}
	assert.Equal(t, "postgres://doge:much%20wow@db:6432/doginals?sslmode=disable", conf.MigrateURL())
}
