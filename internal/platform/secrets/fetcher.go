package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	refPrefix           = "secret://"
	defaultFallbackPath = ".secrets.local"
	defaultVersion      = "latest"
)

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references using Google Secret Manager with a
// process-local cache and a .secrets.local file fallback for development.
type Fetcher struct {
	client     secretManagerClient
	ownsClient bool
	logger     *zap.Logger

	defaultProject string
	fallbackPath   string

	fallbackOnce sync.Once
	fallbackVals map[string]string

	mu    sync.RWMutex
	cache map[string]string
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithDefaultProject sets the project used for short secret://name references.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) { f.defaultProject = strings.TrimSpace(projectID) }
}

// WithFallbackFile overrides the local fallback file path.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) { f.fallbackPath = strings.TrimSpace(path) }
}

// WithSecretManagerClient injects a pre-built client, typically a test double.
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher constructs a Fetcher, dialling Secret Manager unless a client was injected.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	fetcher := &Fetcher{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
		cache:        make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fetcher)
		}
	}

	if fetcher.client == nil {
		client, err := secretmanager.NewClient(ctx, []option.ClientOption{}...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		fetcher.client = client
		fetcher.ownsClient = true
	}
	return fetcher, nil
}

// Close releases the Secret Manager client when the Fetcher owns it.
func (f *Fetcher) Close() error {
	if f == nil || !f.ownsClient || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// Resolve returns the payload for a secret:// reference. Values are cached for
// the process lifetime; remote failures fall back to the local secrets file.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	name, err := f.resourceName(ref)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	cached, ok := f.cache[name]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	value, err := f.fetchRemote(ctx, name)
	if err != nil {
		if fallback, ok := f.lookupFallback(ref); ok {
			f.logger.Warn("secrets.fallback_used", zap.String("ref", maskReference(ref)), zap.Error(err))
			return fallback, nil
		}
		return "", err
	}

	f.mu.Lock()
	f.cache[name] = value
	f.mu.Unlock()
	return value, nil
}

// Invalidate drops a cached secret so the next Resolve refetches it.
func (f *Fetcher) Invalidate(ref string) {
	name, err := f.resourceName(ref)
	if err != nil {
		return
	}
	f.mu.Lock()
	delete(f.cache, name)
	f.mu.Unlock()
}

func (f *Fetcher) fetchRemote(ctx context.Context, name string) (string, error) {
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("secrets: %s not found: %w", name, err)
		}
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: %s has empty payload", name)
	}
	return string(resp.GetPayload().GetData()), nil
}

// resourceName converts a secret:// reference into a Secret Manager resource
// name. Accepted forms are secret://projects/<p>/secrets/<s>/versions/<v> and
// the short secret://<name>[@version] against the default project.
func (f *Fetcher) resourceName(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if !strings.HasPrefix(trimmed, refPrefix) {
		return "", fmt.Errorf("secrets: invalid reference %q", maskReference(ref))
	}
	body := strings.TrimPrefix(trimmed, refPrefix)
	if body == "" {
		return "", errors.New("secrets: empty reference")
	}

	if strings.HasPrefix(body, "projects/") {
		parts := strings.Split(body, "/")
		if len(parts) == 4 && parts[2] == "secrets" {
			return body + "/versions/" + defaultVersion, nil
		}
		if len(parts) == 6 && parts[2] == "secrets" && parts[4] == "versions" {
			return body, nil
		}
		return "", fmt.Errorf("secrets: malformed reference %q", maskReference(ref))
	}

	if f.defaultProject == "" {
		return "", fmt.Errorf("secrets: reference %q requires a default project", maskReference(ref))
	}
	name, version := body, defaultVersion
	if at := strings.LastIndex(body, "@"); at > 0 {
		name, version = body[:at], body[at+1:]
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.defaultProject, name, version), nil
}

func (f *Fetcher) lookupFallback(ref string) (string, bool) {
	f.fallbackOnce.Do(f.loadFallback)
	value, ok := f.fallbackVals[strings.TrimSpace(ref)]
	return value, ok
}

func (f *Fetcher) loadFallback() {
	f.fallbackVals = make(map[string]string)
	if f.fallbackPath == "" {
		return
	}
	file, err := os.Open(f.fallbackPath)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if strings.HasPrefix(key, refPrefix) {
			f.fallbackVals[key] = strings.TrimSpace(parts[1])
		}
	}
}

func maskReference(ref string) string {
	trimmed := strings.TrimSpace(ref)
	if len(trimmed) <= len(refPrefix)+4 {
		return refPrefix + "***"
	}
	return trimmed[:len(refPrefix)+4] + "***"
}
