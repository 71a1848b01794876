package config

// ClientConfig is the subset of configuration the frontend needs to know
// about. Nothing secret belongs here.
type ClientConfig struct {
	FrontendURL            string   `json:"frontend_url"`
	MediaURL               string   `json:"media_url"`
	AvatarMaxBytes         int64    `json:"avatar_max_bytes"`
	ImageProxyAllowedHosts []string `json:"image_proxy_allowed_hosts"`
}

type Service struct {
	config *Config
}

func NewService(cfg *Config) *Service {
	return &Service{config: cfg}
}

func (s *Service) RetrieveClientConfig() *ClientConfig {
	return &ClientConfig{
		FrontendURL:            s.config.FrontendURL,
		MediaURL:               s.config.MediaURL,
		AvatarMaxBytes:         s.config.AvatarMaxBytes,
		ImageProxyAllowedHosts: s.config.ImageProxyAllowedHosts,
	}
}
