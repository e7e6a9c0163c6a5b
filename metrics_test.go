package gorestx

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func counterValue(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	for _, scopeMetrics := range rm.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestRequestCountersIncrement(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prevProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer otel.SetMeterProvider(prevProvider)

	// A request that fails transport twice before succeeding.
	var attempts int
	retryConn := &RestConnMock{
		WriteRequestHeadFunc: func(method, path string, headers map[string]string) error {
			attempts++
			if attempts <= 2 {
				return errors.New("connection reset")
			}
			return nil
		},
	}
	retryCli := newTestClient(t, nil, &RestClientOptions{Retries: 3}, (&connCounter{}).connFunc(retryConn))

	h, err := retryCli.Get(context.Background(), "/things", nil)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	// A request answered 401 and replayed with a refreshed credential.
	auth := AuthenticateFunc(func(ctx context.Context, client *RestClient, force bool) (map[string]string, error) {
		return map[string]string{"X-Auth-Token": "tok"}, nil
	})
	responses := []*http.Response{
		makeResponse(401, "denied"),
		makeResponse(200, "ok"),
	}
	authConn := &RestConnMock{
		ReadResponseFunc: func() (*http.Response, error) {
			resp := responses[0]
			responses = responses[1:]
			return resp, nil
		},
	}
	authCli := newTestClient(t, &RestClientConfig{
		Endpoint:      "http://api.example.com/v1",
		Authenticator: auth,
	}, nil, (&connCounter{}).connFunc(authConn))

	h, err = authCli.Get(context.Background(), "/secure", nil)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(2), counterValue(t, &rm, "gorestx.requests"))
	assert.Equal(t, int64(2), counterValue(t, &rm, "gorestx.transport_retries"))
	assert.Equal(t, int64(1), counterValue(t, &rm, "gorestx.auth_refreshes"))
}
