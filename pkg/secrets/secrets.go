// Package secrets resolves "secret:<name>" configuration values against
// HashiCorp Vault, AWS Secrets Manager or the process environment.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	vault "github.com/hashicorp/vault/api"
)

const Prefix = "secret:"

var (
	ErrProviderUnavailable = errors.New("secret provider unavailable")
	ErrNotFound            = errors.New("secret not found")
)

type Provider interface {
	GetSecret(ctx context.Context, key string) (value string, err error)
}

// Resolver asks the primary provider first. The environment fallback is only
// consulted when failClosed is off.
type Resolver struct {
	primary    Provider
	fallback   Provider
	failClosed bool
}

// NewResolver builds a resolver for backend, which is one of "env", "vault"
// or "aws". path is the Vault KV v2 data path holding the secrets.
func NewResolver(ctx context.Context, backend, path string) (*Resolver, error) {
	failClosed := os.Getenv("SECRETS_FAIL_CLOSED") != "false"
	r := &Resolver{fallback: envProvider{}, failClosed: failClosed}
	switch backend {
	case "", "env":
		r.primary = envProvider{}
		r.fallback = nil
	case "vault":
		vp, err := newVaultProvider(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("init vault provider: %w", err)
		}
		r.primary = vp
	case "aws":
		ap, err := newAWSProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("init aws provider: %w", err)
		}
		r.primary = ap
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", backend)
	}
	return r, nil
}

func NewResolverWith(primary, fallback Provider, failClosed bool) *Resolver {
	return &Resolver{primary: primary, fallback: fallback, failClosed: failClosed}
}

// Resolve returns value unchanged unless it carries the secret prefix.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, Prefix) {
		return value, nil
	}
	name := strings.TrimPrefix(value, Prefix)
	if name == "" {
		return "", fmt.Errorf("%w: empty secret name", ErrNotFound)
	}
	return r.GetSecret(ctx, name)
}

func (r *Resolver) GetSecret(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if r.primary != nil {
		val, err := r.primary.GetSecret(ctx, key)
		if err == nil && val != "" {
			return val, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: %s is empty", ErrNotFound, key)
		}
		if r.failClosed || r.fallback == nil {
			return "", fmt.Errorf("get secret %s: %w", key, err)
		}
	}
	if r.fallback != nil {
		return r.fallback.GetSecret(ctx, key)
	}
	return "", ErrProviderUnavailable
}

type vaultProvider struct {
	client     *vault.Client
	secretPath string
}

func newVaultProvider(ctx context.Context, path string) (*vaultProvider, error) {
	cfg := vault.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		cfg.Address = addr
	}
	cfg.Timeout = 5 * time.Second
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if tokenFile := os.Getenv("VAULT_TOKEN_FILE"); tokenFile != "" {
		tokenBytes, err := os.ReadFile(tokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read VAULT_TOKEN_FILE: %w", err)
		}
		client.SetToken(strings.TrimSpace(string(tokenBytes)))
	} else if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}
	healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := client.Sys().HealthWithContext(healthCtx); err != nil {
		return nil, fmt.Errorf("vault health check failed: %w", err)
	}
	return &vaultProvider{client: client, secretPath: path}, nil
}

// GetSecret reads <secretPath>/<key> and returns its "value" field.
func (v *vaultProvider) GetSecret(ctx context.Context, key string) (string, error) {
	path := fmt.Sprintf("%s/%s", strings.TrimSuffix(v.secretPath, "/"), key)
	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", errors.New("vault: invalid secret format")
	}
	value, ok := data["value"].(string)
	if !ok {
		return "", errors.New("vault: value not found")
	}
	return value, nil
}

type awsProvider struct {
	client *secretsmanager.Client
}

func newAWSProvider(ctx context.Context) (*awsProvider, error) {
	var opts []func(*config.LoadOptions) error
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &awsProvider{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func (a *awsProvider) GetSecret(ctx context.Context, key string) (string, error) {
	result, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &key,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", key, err)
	}
	if result.SecretString == nil {
		return "", errors.New("secret is binary, not string")
	}
	return *result.SecretString, nil
}

// envProvider maps "database-url" to the variable DATABASE_URL.
type envProvider struct{}

func envName(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", "/", "_", ".", "_").Replace(key))
}

func (envProvider) GetSecret(_ context.Context, key string) (string, error) {
	val, exists := os.LookupEnv(envName(key))
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return val, nil
}
