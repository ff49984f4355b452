package redata

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genpulse/internal/config"
	apperrors "genpulse/internal/errors"
)

const fixtureResponse = `{
  "data": {"type": "Estructura de generación", "id": "gen1"},
  "included": [
    {
      "type": "Eólica",
      "id": "1159",
      "attributes": {
        "title": "Eólica",
        "values": [
          {"value": 1234.5, "percentage": 0.231, "datetime": "2024-01-01T00:00:00.000+01:00"},
          {"value": null, "percentage": 0.4, "datetime": "2024-01-02T00:00:00.000+01:00"}
        ]
      }
    },
    {
      "type": "Solar fotovoltaica",
      "id": "1161",
      "attributes": {
        "title": "Solar fotovoltaica",
        "values": [
          {"value": 88.0, "percentage": 0.042, "datetime": "2024-01-01T00:00:00.000+01:00"}
        ]
      }
    }
  ]
}`

func testConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryBackoff:   time.Millisecond,
		RequestsPerSec: 1000,
		RequestBurst:   10,
	}
}

func TestClient_FetchGenerationStructure(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/datos/generacion/estructura-generacion", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(fixtureResponse))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	records, err := client.FetchGenerationStructure(context.Background(), FetchRequest{
		GeoID: 17,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Contains(t, gotQuery, "geo_ids=17")
	assert.Contains(t, gotQuery, "geo_limit=ccaa")
	assert.Contains(t, gotQuery, "time_trunc=day")
	assert.Contains(t, gotQuery, "start_date=2024-01-01T00%3A00")

	assert.Equal(t, "Eólica", records[0].Technology)
	assert.Equal(t, 1234.5, records[0].Value)
	assert.InDelta(t, 23.1, records[0].Percentage, 1e-9, "fraction converted to percent")

	assert.True(t, math.IsNaN(records[1].Value), "null value becomes the missing marker")

	assert.Equal(t, "Solar fotovoltaica", records[2].Technology)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(fixtureResponse))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	records, err := client.FetchGenerationStructure(context.Background(), FetchRequest{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.FetchGenerationStructure(context.Background(), FetchRequest{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.FetchGenerationStructure(context.Background(), FetchRequest{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.FetchGenerationStructure(context.Background(), FetchRequest{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}
