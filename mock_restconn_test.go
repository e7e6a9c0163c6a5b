package gorestx

import (
	"net/http"
)

// RestConnMock is a configurable RestConn test double. Unset funcs
// fall back to succeeding no-ops; an unset ReadResponseFunc returns an
// empty 200.
type RestConnMock struct {
	WriteRequestHeadFunc func(method, path string, headers map[string]string) error
	WriteBodyFunc        func(chunk []byte) error
	ReadResponseFunc     func() (*http.Response, error)
	CloseFunc            func() error

	WriteRequestHeadCalls int
	WriteBodyCalls        int
	ReadResponseCalls     int
	CloseCalls            int
}

var _ RestConn = (*RestConnMock)(nil)

func (m *RestConnMock) WriteRequestHead(method, path string, headers map[string]string) error {
	m.WriteRequestHeadCalls++
	if m.WriteRequestHeadFunc == nil {
		return nil
	}
	return m.WriteRequestHeadFunc(method, path, headers)
}

func (m *RestConnMock) WriteBody(chunk []byte) error {
	m.WriteBodyCalls++
	if m.WriteBodyFunc == nil {
		return nil
	}
	return m.WriteBodyFunc(chunk)
}

func (m *RestConnMock) ReadResponse() (*http.Response, error) {
	m.ReadResponseCalls++
	if m.ReadResponseFunc == nil {
		return makeResponse(200, ""), nil
	}
	return m.ReadResponseFunc()
}

func (m *RestConnMock) Close() error {
	m.CloseCalls++
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}
