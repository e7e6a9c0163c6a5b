package zaputils

import (
	"fmt"

	"go.uber.org/zap"
)

func Method(key string, val string) zap.Field {
	return zap.String(key, val)
}

func Path(key string, val string) zap.Field {
	return zap.String(key, val)
}

func StatusCode(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func RequestID(key string, val string) zap.Field {
	return zap.String(key, val)
}

type LoggableRequestLine struct {
	Method string
	Path   string
}

func (e LoggableRequestLine) String() string {
	return fmt.Sprintf("%s %s", e.Method, e.Path)
}

func RequestLine(key string, method, path string) zap.Field {
	return zap.Stringer(key, LoggableRequestLine{
		Method: method,
		Path:   path,
	})
}

type LoggableEndpoint struct {
	Host   string
	Port   int
	UseTls bool
}

func (e LoggableEndpoint) String() string {
	scheme := "http"
	if e.UseTls {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.Host, e.Port)
}

func Endpoint(key string, host string, port int, useTls bool) zap.Field {
	return zap.Stringer(key, LoggableEndpoint{
		Host:   host,
		Port:   port,
		UseTls: useTls,
	})
}
