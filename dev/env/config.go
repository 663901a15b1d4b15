package devenv

// LiveGatewayConfig is read from dev/.state/gateway.json5 by tests that talk
// to a real gateway. Those tests skip when the file is missing.
type LiveGatewayConfig struct {
	BaseUrl     string `json:"base_url"`
	GoldenKey   string `json:"golden_key"`
	UserAgent   string `json:"user_agent"`
	UserID      int64  `json:"user_id"`
	Subcategory int64  `json:"subcategory_id"`
}

func GetLiveGatewayConfig() (LiveGatewayConfig, error) {
	return GetStateConfig[LiveGatewayConfig]("gateway.json5")
}
