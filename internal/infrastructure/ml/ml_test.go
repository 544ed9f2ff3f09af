package ml_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/infrastructure/config"
	"github.com/bibbank/phishguard/internal/infrastructure/ml"
)

func extract(t *testing.T, raw string) (model.URLRequest, model.FeatureSet) {
	t.Helper()
	lists, err := service.NewTrustLists(service.DefaultTrustListsConfig())
	require.NoError(t, err)
	req, err := model.NewURLRequest(raw, model.RequestOptions{})
	require.NoError(t, err)
	f, err := service.NewFeatureExtractor(lists).Extract(req.URL())
	require.NoError(t, err)
	return req, f
}

func TestLexicalModel_Score(t *testing.T) {
	m := ml.NewLexicalModel("lexical", 0, nil)
	assert.Equal(t, "lexical", m.Name())

	benignReq, benign := extract(t, "https://example.com/")
	pb, err := m.Score(context.Background(), benignReq, benign)
	require.NoError(t, err)

	phishReq, phish := extract(t, "http://192.168.10.7:8080/secure-login/verify@account.tk")
	pp, err := m.Score(context.Background(), phishReq, phish)
	require.NoError(t, err)

	assert.Greater(t, pb, 0.0)
	assert.Less(t, pb, 0.5)
	assert.Greater(t, pp, pb)
	assert.LessOrEqual(t, pp, 1.0)
}

func TestLexicalModel_ScoreIsBitStable(t *testing.T) {
	m := ml.NewLexicalModel("lexical", 0, nil)
	req, f := extract(t, "https://sub.a1b2-c3.d4e5.co.uk/path//x?y=%41")

	first, err := m.Score(context.Background(), req, f)
	require.NoError(t, err)
	for i := 0; i < 2000; i++ {
		p, err := m.Score(context.Background(), req, f)
		require.NoError(t, err)
		require.Equal(t, math.Float64bits(first), math.Float64bits(p), "iteration %d", i)
	}
}

func TestPresetCoefficients(t *testing.T) {
	benignReq, benign := extract(t, "https://example.com/")
	phishReq, phish := extract(t, "http://192.168.10.7:8080/secure-login//verify@account.tk?a=%41")

	for _, preset := range []string{"", config.LexicalPresetFull, config.LexicalPresetStructure, config.LexicalPresetContent} {
		t.Run("preset "+preset, func(t *testing.T) {
			bias, coefficients, err := ml.PresetCoefficients(preset)
			require.NoError(t, err)
			m := ml.NewLexicalModel(preset, bias, coefficients)

			pb, err := m.Score(context.Background(), benignReq, benign)
			require.NoError(t, err)
			pp, err := m.Score(context.Background(), phishReq, phish)
			require.NoError(t, err)

			assert.Less(t, pb, 0.5)
			assert.Greater(t, pp, pb)
		})
	}

	_, _, err := ml.PresetCoefficients("semantic")
	assert.ErrorContains(t, err, `unknown lexical preset "semantic"`)
}

func TestLexicalModel_CustomCoefficients(t *testing.T) {
	m := ml.NewLexicalModel("flat", 0, map[string]float64{"unused": 1})
	req, f := extract(t, "https://example.com/")

	p, err := m.Score(context.Background(), req, f)

	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestLexicalModel_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, f := extract(t, "https://example.com/")

	_, err := ml.NewLexicalModel("lexical", 0, nil).Score(ctx, req, f)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPModel_Score(t *testing.T) {
	req, f := extract(t, "https://example.com/login")

	t.Run("returns the served probability", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Features map[string]float64 `json:"features"`
				URL      string             `json:"url"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "https://example.com/login", body.URL)
			assert.Contains(t, body.Features, "host_entropy")
			_, _ = w.Write([]byte(`{"probability":0.42}`))
		}))
		defer srv.Close()

		p, err := ml.NewHTTPModel("electra", srv.URL, srv.Client()).Score(context.Background(), req, f)

		require.NoError(t, err)
		assert.InDelta(t, 0.42, p, 1e-9)
	})

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantErr: "unexpected status 500"},
		{name: "missing probability", status: http.StatusOK, body: `{}`, wantErr: "no probability"},
		{name: "out of range", status: http.StatusOK, body: `{"probability":1.7}`, wantErr: "out of range"},
		{name: "garbage", status: http.StatusOK, body: `<html>`, wantErr: "decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := ml.NewHTTPModel("electra", srv.URL, srv.Client()).Score(context.Background(), req, f)

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("honours the context deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := ml.NewHTTPModel("slow", srv.URL, srv.Client()).Score(ctx, req, f)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestBuildModels(t *testing.T) {
	models, err := ml.BuildModels([]config.ModelSpec{
		{Name: "remote", Kind: config.ModelKindHTTP, Endpoint: "http://localhost:1/score", Weight: 0.6, Timeout: time.Second},
		{Name: "lexical", Kind: config.ModelKindLexical, Weight: 0.4},
	}, nil)

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "remote", models[0].Model.Name())
	assert.Equal(t, time.Second, models[0].Timeout)
	assert.IsType(t, &ml.LexicalModel{}, models[1].Model)

	_, err = service.NewEnsemble(models, nil)
	assert.NoError(t, err)

	_, err = ml.BuildModels([]config.ModelSpec{{Name: "x", Kind: "onnx", Weight: 1}}, nil)
	assert.ErrorContains(t, err, `unknown kind "onnx"`)
}

func TestBuildModels_DefaultPolicyRenormalizes(t *testing.T) {
	p, err := config.DefaultPolicy()
	require.NoError(t, err)
	models, err := ml.BuildModels(p.Models, nil)
	require.NoError(t, err)
	require.Len(t, models, 3)

	// A member that always fails leaves the other two carrying all weight.
	models[1].Model = failingModel{name: models[1].Model.Name()}
	ensemble, err := service.NewEnsemble(models, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	req, f := extract(t, "https://example.com/login")
	res, err := ensemble.Score(context.Background(), req, f, time.Second)

	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "host-structure")
	var total float64
	for _, s := range res.Scores {
		total += s.EffectiveWeight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.40/0.65, res.Scores[0].EffectiveWeight, 1e-9)
}

type failingModel struct{ name string }

func (m failingModel) Name() string { return m.name }

func (failingModel) Score(context.Context, model.URLRequest, model.FeatureSet) (float64, error) {
	return 0, errors.New("model offline")
}
