package config

import (
	"fmt"
	"os"
)

func Template() string {
	return tapTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(tapTemplate), 0o600)
}

const tapTemplate = `# server_name defaults to the host name
# server_name = "dhcp-1.example.com"
topic = "dhcp/transactions"
brokers = ["localhost:1883"]
# source_address = "2001:db8::1"
# client_id = "dhcptap-dhcp-1"
qos = 1
reconnect_interval = "5s"
max_reconnect_interval = "1m"
publish_timeout = "5s"
# metrics_addr = ":9108"
`
