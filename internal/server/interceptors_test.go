package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	const adminMethod = "/panelkit.v1.Admin/ListComponents"
	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD
		want   codes.Code
	}{
		{"Disabled", "", adminMethod, nil, codes.OK},
		{"HealthCheckExempt", "secret", "/grpc.health.v1.Health/Check", nil, codes.OK},
		{"MissingMetadata", "secret", adminMethod, nil, codes.Unauthenticated},
		{"MissingAuthHeader", "secret", adminMethod, metadata.Pairs("other", "value"), codes.Unauthenticated},
		{"InvalidScheme", "secret", adminMethod, metadata.Pairs("authorization", "Basic secret"), codes.Unauthenticated},
		{"WrongToken", "secret", adminMethod, metadata.Pairs("authorization", "Bearer wrong"), codes.Unauthenticated},
		{"CorrectToken", "secret", adminMethod, metadata.Pairs("authorization", "Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.want {
				t.Fatalf("code = %v, want %v (err %v)", got, tc.want, err)
			}
			if tc.want == codes.OK && resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	panicking := func(context.Context, any) (any, error) { panic("boom") }
	_, err := RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, panicking)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		header string
		want   int
	}{
		{"Disabled", "", http.MethodGet, "/v1/components", "", http.StatusOK},
		{"NoHeader", "secret", http.MethodGet, "/v1/components", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodGet, "/v1/components", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", http.MethodGet, "/v1/components", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", http.MethodPost, "/v1/components/widgets/uninstall", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusOK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, ok).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d; body: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

// fakeStream carries an incoming context for stream interceptor tests.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamInterceptors(t *testing.T) {
	ok := func(any, grpc.ServerStream) error { return nil }
	bare := &fakeStream{ctx: context.Background()}

	watch := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}
	if err := StreamAuthInterceptor("secret")(nil, bare, watch, ok); err != nil {
		t.Fatalf("health watch should be exempt: %v", err)
	}

	other := &grpc.StreamServerInfo{FullMethod: "/panelkit.v1.Admin/Tail"}
	if err := StreamAuthInterceptor("secret")(nil, bare, other, ok); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	authed := &fakeStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer secret"))}
	if err := StreamAuthInterceptor("secret")(nil, authed, other, ok); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	boom := func(any, grpc.ServerStream) error { panic("boom") }
	if err := StreamRecoveryInterceptor(nil, bare, other, boom); status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
