package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"ratingbot/pkg/config"
	"ratingbot/pkg/logger"
)

// Client wraps the Telegram Bot API for the two outbound concerns of
// this service: webhook registration at startup and the "#<n>" command
// replies. Everything else about the platform is out of scope.
type Client struct {
	bot         *bot.Bot
	log         *logger.Logger
	webhookHost string
	pathToken   string
}

func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.Telegram.SendTimeout}
	if cfg.Telegram.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Telegram.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_PROXY: %w", err)
		}
		httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	// Updates arrive over the webhook, so the client never polls and
	// the getMe roundtrip at construction is unnecessary.
	b, err := bot.New(cfg.Telegram.Token,
		bot.WithSkipGetMe(),
		bot.WithHTTPClient(cfg.Telegram.SendTimeout, httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	return &Client{
		bot:         b,
		log:         log,
		webhookHost: cfg.Telegram.WebhookHost,
		pathToken:   cfg.Telegram.PathToken,
	}, nil
}

// WebhookURL is the public URL Telegram should deliver updates to.
func (c *Client) WebhookURL() string {
	return fmt.Sprintf("https://%s/%s", c.webhookHost, c.pathToken)
}

// EnsureWebhook checks the current webhook subscription and registers
// ours when it differs. Idempotent; called once at startup. Only
// message updates are requested since nothing else is ingested.
func (c *Client) EnsureWebhook(ctx context.Context) error {
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	want := c.WebhookURL()
	if info.URL == want {
		c.log.Info("webhook already registered")
		return nil
	}

	ok, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            want,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("telegram rejected webhook registration")
	}
	c.log.Info("webhook registered")
	return nil
}

// CheckWebhook verifies the subscription still points at this service.
// Used by the periodic health check; drift means another deployment
// took over the token.
func (c *Client) CheckWebhook(ctx context.Context) error {
	info, err := c.bot.GetWebhookInfo(ctx)
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.URL != c.WebhookURL() {
		return fmt.Errorf("webhook url drifted to %q", info.URL)
	}
	return nil
}

// SendReply posts a message to the chat threaded as a reply to an
// earlier message.
func (c *Client) SendReply(ctx context.Context, chatID int64, text string, replyToID int64) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyParameters: &tgmodels.ReplyParameters{
			MessageID: int(replyToID),
		},
	})
	if err != nil {
		return fmt.Errorf("send message to chat %d: %w", chatID, err)
	}
	return nil
}
