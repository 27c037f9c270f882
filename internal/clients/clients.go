package clients

import (
	"aki/bff/internal/config"
	"aki/bff/internal/httpclient"
)

type Clients struct {
	PersonasHTTP *httpclient.Client
	CoreHTTP     *httpclient.Client
	PasswordHTTP *httpclient.Client
	Personas     *Personas
	Core         *Core
	Password     *PasswordFunction
}

func New(cfg config.Config) *Clients {
	personasHTTP := dial(cfg, "personas", cfg.PersonasBaseURL)
	coreHTTP := dial(cfg, "core", cfg.CoreBaseURL)
	passwordHTTP := dial(cfg, "function-password", cfg.FunctionPasswordURL)

	return &Clients{
		PersonasHTTP: personasHTTP,
		CoreHTTP:     coreHTTP,
		PasswordHTTP: passwordHTTP,
		Personas:     NewPersonas(personasHTTP),
		Core:         NewCore(coreHTTP),
		Password:     NewPasswordFunction(passwordHTTP),
	}
}

// Upstreams lists every upstream client, for probing and shutdown.
func (c *Clients) Upstreams() []*httpclient.Client {
	return []*httpclient.Client{c.PersonasHTTP, c.CoreHTTP, c.PasswordHTTP}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	for _, client := range c.Upstreams() {
		if client != nil {
			client.CloseIdleConnections()
		}
	}
}

func dial(cfg config.Config, name, baseURL string) *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Name:       name,
		BaseURL:    baseURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Breaker:    cfg.BreakerEnabled,
	})
}
