package config

// APIConfig configures the HTTP planning API started by "routeplan serve".
type APIConfig struct {
	ListenAddr string `json:"listen_addr"`
	// Token, when set, is required as a bearer token on every request.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
}
