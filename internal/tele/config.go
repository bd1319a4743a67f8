package tele

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	DeviceId          string `hcl:"device_id"`
	LogDebug          bool   `hcl:"log_debug"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	MqttBroker        string `hcl:"mqtt_broker"`
	MqttLogDebug      bool   `hcl:"mqtt_log_debug"`
	MqttPassword      string `hcl:"mqtt_password"` // secret
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	StateIntervalSec  int    `hcl:"state_interval_sec"`
	TopicPrefix       string `hcl:"topic_prefix"`
	TlsCaFile         string `hcl:"tls_ca_file"`

	PersistPath string `hcl:"-"`
}

func (c *Config) topicPrefix() string {
	if c.TopicPrefix != "" {
		return c.TopicPrefix
	}
	return "battwatch/" + c.DeviceId
}
