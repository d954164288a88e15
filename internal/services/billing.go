package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"

	"voltprep/internal/models"
	"voltprep/internal/utils"
)

const (
	webhookEventTTL   = 24 * time.Hour
	webhookCacheSize  = 1000
	MaxWebhookPayload = int64(65536)
)

// MapStripeStatus 把 Stripe 订阅状态映射为本地状态，未知状态一律视为过期
func MapStripeStatus(status string) models.SubscriptionStatus {
	switch stripe.SubscriptionStatus(status) {
	case stripe.SubscriptionStatusActive:
		return models.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return models.StatusTrialing
	case stripe.SubscriptionStatusPastDue:
		return models.StatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return models.StatusCanceled
	case stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return models.StatusPastDue
	case stripe.SubscriptionStatusIncompleteExpired:
		return models.StatusExpired
	default:
		return models.StatusExpired
	}
}

// StripeClient 对 Stripe API 的最小封装
type StripeClient interface {
	CreateCustomer(ctx context.Context, user *models.User) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, userID, priceID, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

type stripeAPI struct{}

// NewStripeClient 设置全局 API key
func NewStripeClient(secretKey string) StripeClient {
	stripe.Key = secretKey
	return stripeAPI{}
}

func (stripeAPI) CreateCustomer(ctx context.Context, user *models.User) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", user.ID)
	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (stripeAPI) CreateCheckoutSession(ctx context.Context, customerID, userID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	sess, err := session.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (stripeAPI) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx
	sess, err := portal.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

type BillingService struct {
	users         UserStore
	client        StripeClient
	priceID       string
	siteURL       string
	webhookSecret string
	processed     *utils.TTLCache[bool]
}

func NewBillingService(users UserStore, client StripeClient, priceID, siteURL, webhookSecret string) *BillingService {
	return &BillingService{
		users:         users,
		client:        client,
		priceID:       priceID,
		siteURL:       siteURL,
		webhookSecret: webhookSecret,
		processed:     utils.NewTTLCache[bool](webhookCacheSize),
	}
}

// ensureCustomer 首次结账时创建 Stripe 客户并保存 id
func (s *BillingService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}
	customerID, err := s.client.CreateCustomer(ctx, user)
	if err != nil {
		return "", upstream("create stripe customer", err)
	}
	if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"stripe_customer_id": customerID}); err != nil {
		return "", fmt.Errorf("save stripe customer: %w", err)
	}
	return customerID, nil
}

func (s *BillingService) Checkout(ctx context.Context, userID string) (string, error) {
	if s.priceID == "" {
		return "", upstream("checkout", errors.New("STRIPE_PRICE_ID not configured"))
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	url, err := s.client.CreateCheckoutSession(ctx, customerID, user.ID, s.priceID,
		s.siteURL+"/billing/success", s.siteURL+"/billing/cancel")
	if err != nil {
		return "", upstream("create checkout session", err)
	}
	return url, nil
}

func (s *BillingService) Portal(ctx context.Context, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", invalid("customer", "no billing account for this user")
	}
	url, err := s.client.CreatePortalSession(ctx, *user.StripeCustomerID, s.siteURL+"/settings/billing")
	if err != nil {
		return "", upstream("create portal session", err)
	}
	return url, nil
}

// HandleWebhook 校验签名后处理事件；签名错误返回 ValidationError
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.webhookSecret == "" {
		return upstream("stripe webhook", errors.New("webhook secret not configured"))
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Printf("stripe webhook signature failed: %v", err)
		return invalid("signature", "signature verification failed")
	}
	return s.ApplyEvent(ctx, event)
}

// ApplyEvent 同一个事件只处理一次；处理失败不记录，Stripe 会重试
func (s *BillingService) ApplyEvent(ctx context.Context, event stripe.Event) error {
	if _, seen := s.processed.Get(event.ID); seen {
		log.Printf("stripe event %s already processed", event.ID)
		return nil
	}

	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = s.onCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.onSubscriptionChanged(ctx, event, false)
	case "customer.subscription.deleted":
		err = s.onSubscriptionChanged(ctx, event, true)
	case "invoice.payment_failed":
		err = s.onPaymentFailed(ctx, event)
	default:
		// 其他事件忽略
	}
	if err != nil {
		return err
	}

	if event.ID != "" {
		s.processed.Set(event.ID, true, webhookEventTTL)
	}
	return nil
}

func (s *BillingService) onCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return invalid("payload", "invalid session payload")
	}

	fields := map[string]interface{}{"subscription_status": models.StatusActive}
	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
		fields["stripe_customer_id"] = customerID
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		fields["stripe_subscription_id"] = sess.Subscription.ID
	}

	userID := sess.ClientReferenceID
	if userID == "" {
		user, err := s.lookupCustomer(ctx, customerID)
		if err != nil || user == nil {
			return err
		}
		userID = user.ID
	}

	err := s.users.UpdateFields(ctx, userID, fields)
	if errors.Is(err, ErrNotFound) {
		log.Printf("stripe checkout for unknown user %s", userID)
		return nil
	}
	return err
}

func (s *BillingService) onSubscriptionChanged(ctx context.Context, event stripe.Event, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return invalid("payload", "invalid subscription payload")
	}
	if sub.Customer == nil {
		return invalid("payload", "missing customer id")
	}
	user, err := s.lookupCustomer(ctx, sub.Customer.ID)
	if err != nil || user == nil {
		return err
	}

	status := MapStripeStatus(string(sub.Status))
	if deleted {
		status = models.StatusCanceled
	}
	fields := map[string]interface{}{
		"subscription_status":    status,
		"stripe_subscription_id": sub.ID,
	}
	if sub.CurrentPeriodEnd > 0 {
		fields["subscription_period_end"] = time.Unix(sub.CurrentPeriodEnd, 0)
	}
	return s.users.UpdateFields(ctx, user.ID, fields)
}

func (s *BillingService) onPaymentFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return invalid("payload", "invalid invoice payload")
	}
	if inv.Customer == nil {
		return invalid("payload", "missing customer id")
	}
	user, err := s.lookupCustomer(ctx, inv.Customer.ID)
	if err != nil || user == nil {
		return err
	}
	return s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"subscription_status": models.StatusPastDue})
}

// lookupCustomer 找不到用户时返回 nil, nil，事件照常确认
func (s *BillingService) lookupCustomer(ctx context.Context, customerID string) (*models.User, error) {
	if customerID == "" {
		log.Printf("stripe event missing customer id")
		return nil, nil
	}
	user, err := s.users.FindByStripeCustomer(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		log.Printf("stripe event for unknown customer %s", customerID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
