package gorestx

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Endpoint is the decomposed form of the endpoint URL a client targets.
type Endpoint struct {
	Host     string
	Port     int
	BasePath string
	UseTls   bool
}

// ParseEndpoint breaks an endpoint URL down into the host, port, base
// path and TLS flag used to establish connections. Only http and https
// schemes are supported; the default ports are 80 and 443.
func ParseEndpoint(endpoint string) (Endpoint, error) {
	parsedUrl, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return Endpoint{}, errors.Wrap(err, "failed to parse endpoint")
	}

	var useTls bool
	switch parsedUrl.Scheme {
	case "http":
	case "https":
		useTls = true
	default:
		return Endpoint{}, errors.Wrapf(ErrInvalidEndpoint,
			"unsupported scheme '%s'", parsedUrl.Scheme)
	}

	host := parsedUrl.Hostname()
	if host == "" {
		return Endpoint{}, errors.Wrap(ErrInvalidEndpoint, "missing host")
	}

	port := 80
	if useTls {
		port = 443
	}
	if portStr := parsedUrl.Port(); portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil {
			return Endpoint{}, errors.Wrap(ErrInvalidEndpoint, "invalid port")
		}
	}

	return Endpoint{
		Host:     host,
		Port:     port,
		BasePath: strings.Trim(parsedUrl.Path, "/"),
		UseTls:   useTls,
	}, nil
}
