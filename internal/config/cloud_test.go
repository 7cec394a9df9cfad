package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCloudType(t *testing.T) {
	tests := []struct {
		in      string
		want    CloudType
		wantErr bool
	}{
		{in: "", want: CloudGlobal},
		{in: "Global", want: CloudGlobal},
		{in: "china", want: CloudChina},
		{in: " AzureChina ", want: CloudChina},
		{in: "usgov", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCloudType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCloudSettings(t *testing.T) {
	global := Cloud(CloudGlobal)
	assert.Equal(t, "https://login.microsoftonline.com/common", global.Authority(""))
	assert.Equal(t, "https://graph.microsoft.com/v1.0", global.GraphEndpoint)
	assert.Equal(t, "https://graph.microsoft.com/.default", global.DefaultScope())

	china := Cloud(CloudChina)
	assert.Equal(t, "https://login.chinacloudapi.cn/tenant-x", china.Authority("tenant-x"))
	assert.Equal(t, "https://microsoftgraph.chinacloudapi.cn/v1.0", china.GraphEndpoint)
	assert.Equal(t, "https://microsoftgraph.chinacloudapi.cn/.default", china.DefaultScope())
	assert.Contains(t, china.DelegatedScopes(), "https://microsoftgraph.chinacloudapi.cn/Mail.Send")

	assert.Equal(t, global, Cloud("unknown"))
}

func TestValidate(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.False(t, Validate(cfg).HasErrors())

	cfg.Server.Transport = "carrier-pigeon"
	cfg.CloudType = "mars"
	errs := Validate(cfg)
	assert.Len(t, errs, 2)

	cfg = GetDefaultConfig()
	cfg.Server.Transport = MCPTransportSSE
	cfg.Server.Port = 0
	errs = Validate(cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "server.port", errs[0].Field)
}
