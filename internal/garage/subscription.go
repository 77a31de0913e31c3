package garage

import (
	"context"
	"fmt"

	"garage-go/internal/model"
)

// UsageBanner is the account usage summary drawn above build listings. When
// the status could not be loaded the banner is absent and draws nothing.
type UsageBanner struct {
	Status Optional[model.SubscriptionStatus]
}

// State classifies the loaded status. An absent banner is normal.
func (b UsageBanner) State() UsageState {
	st, ok := b.Status.Get()
	if !ok {
		return UsageNormal
	}
	return EvaluateUsage(st.BuildUsagePercentage, st.StorageUsagePercentage)
}

// UsageBanner loads the subscription status. A failure is logged and yields
// an absent banner.
func (s *Service) UsageBanner(ctx context.Context) UsageBanner {
	return UsageBanner{Status: LoadOptional(ctx, s.logger, "subscription status", s.backend.SubscriptionStatus)}
}

// Subscription loads the subscription status for the dedicated status view.
// Unlike the banner it reports failures.
func (s *Service) Subscription(ctx context.Context) (*model.SubscriptionStatus, error) {
	st, err := s.backend.SubscriptionStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading subscription: %w", err)
	}
	return st, nil
}

// UpgradeURL creates a checkout session and returns where to send the user.
func (s *Service) UpgradeURL(ctx context.Context) (string, error) {
	url, err := s.backend.CreateCheckoutSession(ctx)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return url, nil
}

// PortalURL creates a billing portal session.
func (s *Service) PortalURL(ctx context.Context) (string, error) {
	url, err := s.backend.CreatePortalSession(ctx)
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return url, nil
}
