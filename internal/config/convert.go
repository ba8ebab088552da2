package config

import "github.com/danmuck/dhcptap/internal/sink"

// SinkConfig maps the tap config onto the MQTT publisher settings.
func (c TapConfig) SinkConfig() (sink.MQTTConfig, error) {
	brokers, err := c.BrokerURLs()
	if err != nil {
		return sink.MQTTConfig{}, err
	}
	out := sink.DefaultMQTTConfig()
	out.Brokers = brokers
	out.Topic = c.Topic
	out.ClientID = c.ClientID
	out.QoS = byte(c.QoS)
	out.SourceAddress = c.SourceAddress
	out.PublishTimeout = c.PublishTimeout
	out.Reconnect.InitialDelay = c.ReconnectInterval
	out.Reconnect.MaxDelay = c.MaxReconnectInterval
	return out, nil
}
