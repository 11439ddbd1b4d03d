package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
)

func TestDSN(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Host = "db.internal"
	conf.Database.Port = "6543"

	tests := []struct {
		name       string
		admin      bool
		disableTLS bool
		adminUser  string
		wantUser   string
		wantSSL    string
	}{
		{name: "app user", wantUser: "coursemapper", wantSSL: "require", adminUser: "postgres"},
		{name: "admin", admin: true, adminUser: "postgres", wantUser: "postgres", wantSSL: "require"},
		{name: "admin not configured", admin: true, wantUser: "coursemapper", wantSSL: "disable", disableTLS: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf.Database.DisableTLS = tt.disableTLS
			conf.Database.AdminUser = tt.adminUser

			u, err := url.Parse(dsn("coursemapper", tt.admin, conf))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "db.internal:6543", u.Host)
			assert.Equal(t, "/coursemapper", u.Path)
			assert.Equal(t, tt.wantUser, u.User.Username())
			assert.Equal(t, tt.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}
}
