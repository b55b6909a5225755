package cfg

import (
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultServerURL     = "http://localhost:3000"
	DefaultClientTimeout = 30 * time.Second
)

// ClientCfg holds what the CLI needs to reach the server.
type ClientCfg struct {
	ServerURL string
	Timeout   time.Duration
}

func LoadClient() (*ClientCfg, error) {
	c := &ClientCfg{ServerURL: getEnv("GHOSTINK_API_URL", "")}
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	var err error
	c.Timeout, err = getDuration("GHOSTINK_TIMEOUT", DefaultClientTimeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ClientCfg) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return errors.Wrap(err, "invalid server url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("server url must be http or https, got %q", c.ServerURL)
	}
	if u.Host == "" {
		return errors.Errorf("server url has no host: %q", c.ServerURL)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
