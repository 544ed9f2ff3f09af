package grpc_test

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/bibbank/phishguard/internal/application/usecase"
	"github.com/bibbank/phishguard/internal/domain/model"
	"github.com/bibbank/phishguard/internal/domain/service"
	"github.com/bibbank/phishguard/internal/domain/valueobject"
	pggrpc "github.com/bibbank/phishguard/internal/presentation/grpc"
	"github.com/bibbank/phishguard/pkg/auth"
	"github.com/bibbank/phishguard/pkg/tlsutil"
)

// --- Mock implementations ---

type mockDecider struct {
	decideFunc func(ctx context.Context, req model.URLRequest) (*model.Verdict, error)
}

func (m *mockDecider) Decide(ctx context.Context, req model.URLRequest) (*model.Verdict, error) {
	return m.decideFunc(ctx, req)
}

type mockFeedbackRepository struct {
	saved []*model.Feedback
}

func (m *mockFeedbackRepository) Save(_ context.Context, fb *model.Feedback) error {
	m.saved = append(m.saved, fb)
	return nil
}

func (m *mockFeedbackRepository) FindByID(context.Context, uuid.UUID) (*model.Feedback, error) {
	return nil, model.ErrNotFound
}

func (m *mockFeedbackRepository) FindByURL(context.Context, string, int) ([]*model.Feedback, error) {
	return nil, nil
}

type mockInvalidator struct{}

func (mockInvalidator) Invalidate(context.Context, ...valueobject.Fingerprint) error { return nil }

type fixture struct {
	client  pggrpc.DecisionServiceClient
	conn    *grpclib.ClientConn
	decider *mockDecider
	repo    *mockFeedbackRepository
}

func newFixture(t *testing.T, cfg pggrpc.ServerConfig, clientCreds credentials.TransportCredentials) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	lists, err := service.NewTrustLists(service.DefaultTrustListsConfig())
	require.NoError(t, err)

	f := &fixture{
		decider: &mockDecider{decideFunc: func(_ context.Context, req model.URLRequest) (*model.Verdict, error) {
			return model.NewVerdict(model.VerdictParams{
				URL:         req.URL(),
				Probability: 0.97,
				RiskLevel:   valueobject.RiskLevelCritical,
				Confidence:  0.9,
				ModelScores: []model.ModelScore{{Name: "lexical", Status: model.ModelStatusOK, Probability: 0.97, Weight: 1, EffectiveWeight: 1}},
			})
		}},
		repo: &mockFeedbackRepository{},
	}

	handler := pggrpc.NewDecisionServiceHandler(
		usecase.NewScanURL(f.decider),
		usecase.NewEvaluateDomain(service.NewTrustEvaluator(lists, nil, 100*time.Millisecond, logger)),
		usecase.NewSubmitFeedback(f.repo, nil, mockInvalidator{}, logger),
		logger,
	)

	lis := bufconn.Listen(1 << 20)
	srv := pggrpc.NewServer(handler, cfg, logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	if clientCreds == nil {
		clientCreds = insecure.NewCredentials()
	}
	conn, err := grpclib.NewClient("passthrough:///localhost",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpclib.WithTransportCredentials(clientCreds),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	f.conn = conn
	f.client = pggrpc.NewDecisionServiceClient(conn)
	return f
}

func TestDecisionService_Scan(t *testing.T) {
	f := newFixture(t, pggrpc.ServerConfig{}, nil)
	ctx := context.Background()

	t.Run("returns verdict", func(t *testing.T) {
		resp, err := f.client.Scan(ctx, &pggrpc.ScanRequest{URL: "paypa1-login.example.com"})

		require.NoError(t, err)
		require.NotNil(t, resp.Verdict)
		assert.Equal(t, "https://paypa1-login.example.com/", resp.Verdict.URL)
		assert.Equal(t, "critical", resp.Verdict.RiskLevel)
		assert.True(t, resp.Verdict.IsPhishing)
		require.Len(t, resp.Verdict.ModelScores, 1)
		assert.Equal(t, "lexical", resp.Verdict.ModelScores[0].Name)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := f.client.Scan(ctx, &pggrpc.ScanRequest{URL: "javascript:alert(1)"})

		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("ensemble unavailable", func(t *testing.T) {
		prev := f.decider.decideFunc
		t.Cleanup(func() { f.decider.decideFunc = prev })
		f.decider.decideFunc = func(context.Context, model.URLRequest) (*model.Verdict, error) {
			return nil, model.ErrEnsembleUnavailable
		}

		_, err := f.client.Scan(ctx, &pggrpc.ScanRequest{URL: "https://example.com"})

		assert.Equal(t, codes.Unavailable, status.Code(err))
	})

	t.Run("internal errors are opaque", func(t *testing.T) {
		prev := f.decider.decideFunc
		t.Cleanup(func() { f.decider.decideFunc = prev })
		f.decider.decideFunc = func(context.Context, model.URLRequest) (*model.Verdict, error) {
			return nil, errors.New("boom")
		}

		_, err := f.client.Scan(ctx, &pggrpc.ScanRequest{URL: "https://example.com"})

		assert.Equal(t, codes.Internal, status.Code(err))
		assert.Equal(t, "internal error", status.Convert(err).Message())
	})
}

func TestDecisionService_EvaluateDomain(t *testing.T) {
	f := newFixture(t, pggrpc.ServerConfig{}, nil)

	resp, err := f.client.EvaluateDomain(context.Background(), &pggrpc.EvaluateDomainRequest{Domain: "google.com"})

	require.NoError(t, err)
	assert.Equal(t, "google.com", resp.Domain)
	assert.True(t, resp.KnownSafe)
	assert.NotEmpty(t, resp.TrustLevel)
}

func TestDecisionService_SubmitFeedback(t *testing.T) {
	f := newFixture(t, pggrpc.ServerConfig{}, nil)
	ctx := context.Background()

	resp, err := f.client.SubmitFeedback(ctx, &pggrpc.SubmitFeedbackRequest{
		URL:       "https://example.com/",
		VerdictID: uuid.NewString(),
		IsCorrect: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "received", resp.Status)
	require.Len(t, f.repo.saved, 1)
	assert.Equal(t, resp.ID, f.repo.saved[0].ID().String())

	_, err = f.client.SubmitFeedback(ctx, &pggrpc.SubmitFeedbackRequest{URL: "https://example.com/", VerdictID: "nope"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.SubmitFeedback(ctx, &pggrpc.SubmitFeedbackRequest{URL: ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestServer_Auth(t *testing.T) {
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret-key", Issuer: "test"})
	require.NoError(t, err)
	f := newFixture(t, pggrpc.ServerConfig{JWT: jwtSvc}, nil)

	withToken := func(scopes ...string) context.Context {
		token, err := jwtSvc.GenerateToken("extension", scopes)
		require.NoError(t, err)
		return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
	}

	t.Run("health check skips auth", func(t *testing.T) {
		resp, err := healthpb.NewHealthClient(f.conn).Check(context.Background(),
			&healthpb.HealthCheckRequest{Service: pggrpc.ServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := f.client.Scan(context.Background(), &pggrpc.ScanRequest{URL: "https://example.com"})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("scan scope", func(t *testing.T) {
		_, err := f.client.Scan(withToken(auth.ScopeScan), &pggrpc.ScanRequest{URL: "https://example.com"})
		assert.NoError(t, err)
	})

	t.Run("feedback requires its scope", func(t *testing.T) {
		req := &pggrpc.SubmitFeedbackRequest{URL: "https://example.com", IsCorrect: true}

		_, err := f.client.SubmitFeedback(withToken(auth.ScopeScan), req)
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		_, err = f.client.SubmitFeedback(withToken(auth.ScopeFeedback), req)
		assert.NoError(t, err)
	})
}

func TestServer_TLS(t *testing.T) {
	files, err := tlsutil.GenerateDevCertificates([]string{"localhost"}, t.TempDir())
	require.NoError(t, err)
	serverCreds, err := tlsutil.ServerCredentials(files.ServerCert, files.ServerKey)
	require.NoError(t, err)
	clientCreds, err := tlsutil.ClientCredentials(files.CACert)
	require.NoError(t, err)

	f := newFixture(t, pggrpc.ServerConfig{Creds: serverCreds}, clientCreds)

	resp, err := f.client.Scan(context.Background(), &pggrpc.ScanRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", resp.Verdict.URL)
}
