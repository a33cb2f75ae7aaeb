package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{"BareDomain", "api.anthropic.com", false},
		{"Subdomain", "open.bigmodel.cn", false},
		{"DashedName", "my-provider.example.com", false},
		{"IPv4Literal", "192.168.1.10", false},
		{"Localhost", "localhost", false},
		{"SingleCharacter", "a", false},
		{"Empty", "", true},
		{"HTTPScheme", "http://api.anthropic.com", true},
		{"HTTPSScheme", "https://api.anthropic.com", true},
		{"Whitespace", "api.anthropic .com", true},
		{"Tab", "api\tanthropic.com", true},
		{"Slash", "api.anthropic.com/v1", true},
		{"Colon", "api.anthropic.com:443", true},
		{"Underscore", "api_server.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostname(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRejectsInvalidHost(t *testing.T) {
	_, err := New(Config{RemoteHost: "https://api.anthropic.com"})
	assert.Error(t, err)

	_, err = New(Config{RemoteHost: ""})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RemoteHost: "api.anthropic.com"}.withDefaults()
	assert.Equal(t, DefaultRemotePort, cfg.RemotePort)
	assert.Equal(t, DefaultResponseTimeout, cfg.ResponseTimeout)
}
