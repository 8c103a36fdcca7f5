package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/campusbite/orderflow/pkg/config"
	"github.com/campusbite/orderflow/pkg/logger"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoSubscription    = errors.New("pubsub status subscription is required")
)

type subscriptionGetter interface {
	GetSubscription(ctx context.Context, req *pubsubpb.GetSubscriptionRequest, opts ...gax.CallOption) (*pubsubpb.Subscription, error)
}

// Client holds the broker connection for the order status feed.
type Client struct {
	client       *pubsub.Client
	admin        subscriptionGetter
	subscription string
	cfg          config.PubSubConfig
}

// NewClient connects to Pub/Sub and fails fast when the status subscription is
// missing, so a misconfigured deployment never starts without a feed.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	name, err := SubscriptionResourceName(gcp.ProjectID, cfg.StatusSubscription)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:       psClient,
		admin:        psClient.SubscriptionAdminClient,
		subscription: name,
		cfg:          cfg,
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "subscription", name), "status subscription attached")
	}
	return c, nil
}

// StatusSubscription returns a subscriber tuned by the configured flow control.
func (c *Client) StatusSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	sub := c.client.Subscriber(c.subscription)
	applyReceiveSettings(&sub.ReceiveSettings, c.cfg)
	return sub
}

func applyReceiveSettings(settings *pubsub.ReceiveSettings, cfg config.PubSubConfig) {
	if cfg.MaxOutstanding > 0 {
		settings.MaxOutstandingMessages = cfg.MaxOutstanding
	}
	if cfg.Goroutines > 0 {
		settings.NumGoroutines = cfg.Goroutines
	}
	if cfg.MaxExtension > 0 {
		settings.MaxExtension = cfg.MaxExtension
	}
}

// Ping confirms the status subscription still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.admin == nil {
		return errors.New("pubsub client not initialized")
	}
	_, err := c.admin.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.subscription})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("subscription %q does not exist", c.subscription)
	default:
		return fmt.Errorf("checking subscription %q: %w", c.subscription, err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// SubscriptionResourceName expands a short subscription id into
// projects/<project>/subscriptions/<id>. Fully qualified names pass through.
func SubscriptionResourceName(projectID, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errNoSubscription
	}
	if strings.HasPrefix(n, "projects/") {
		parts := strings.Split(n, "/")
		if len(parts) != 4 || parts[2] != "subscriptions" || parts[1] == "" || parts[3] == "" {
			return "", fmt.Errorf("malformed subscription name %q", n)
		}
		return n, nil
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return "", errProjectIDRequired
	}
	return "projects/" + p + "/subscriptions/" + n, nil
}
