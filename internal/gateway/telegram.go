package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"github.com/fkhayef/rentguard/internal/domain"
)

var _ Gateway = (*TelegramClient)(nil)

// TelegramOptions configures a TelegramClient
type TelegramOptions struct {
	BaseURL string
	Token   string
	// Timeout bounds one API call when the caller's context has no deadline.
	Timeout time.Duration
	// RateLimit is the sustained number of API calls per second.
	RateLimit float64
	Burst     int
	// HTTPClient overrides the SDK's default client.
	HTTPClient *http.Client
}

// TelegramClient implements Gateway over the Telegram Bot API
type TelegramClient struct {
	bot     *bot.Bot
	token   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewTelegramClient creates a Bot API client. No request is made until the
// first call.
func NewTelegramClient(opts TelegramOptions, logger *slog.Logger) (*TelegramClient, error) {
	botOpts := []bot.Option{bot.WithSkipGetMe()}
	if opts.BaseURL != "" {
		botOpts = append(botOpts, bot.WithServerURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if opts.HTTPClient != nil {
		botOpts = append(botOpts, bot.WithHTTPClient(opts.HTTPClient.Timeout, opts.HTTPClient))
	}

	b, err := bot.New(opts.Token, botOpts...)
	if err != nil {
		return nil, redact(err, opts.Token)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &TelegramClient{
		bot:     b,
		token:   opts.Token,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}, nil
}

// Revoke kicks the subject out of the group without a lasting ban: the
// subject is banned and immediately unbanned so they can rejoin later.
func (c *TelegramClient) Revoke(ctx context.Context, groupID, subjectID int64) error {
	err := c.call(ctx, "banChatMember", func(ctx context.Context) error {
		_, err := c.bot.BanChatMember(ctx, &bot.BanChatMemberParams{ChatID: groupID, UserID: subjectID})
		return err
	})
	if err != nil {
		return err
	}

	err = c.call(ctx, "unbanChatMember", func(ctx context.Context) error {
		_, err := c.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{ChatID: groupID, UserID: subjectID, OnlyIfBanned: true})
		return err
	})
	if err != nil {
		c.logger.WarnContext(ctx, "subject banned but unban failed", "group", groupID, "subject", subjectID, "error", err)
		return err
	}
	return nil
}

// Notify sends a plain text message to a principal's private chat
func (c *TelegramClient) Notify(ctx context.Context, principalID int64, text string) error {
	return c.call(ctx, "sendMessage", func(ctx context.Context) error {
		_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: principalID, Text: text})
		return err
	})
}

// Member reports the subject's current status in the group as the platform
// sees it. Restricted subjects still count as members.
func (c *TelegramClient) Member(ctx context.Context, groupID, subjectID int64) (domain.MemberStatus, error) {
	var status domain.MemberStatus
	err := c.call(ctx, "getChatMember", func(ctx context.Context) error {
		m, err := c.bot.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: groupID, UserID: subjectID})
		if err != nil {
			return err
		}
		switch string(m.Type) {
		case "creator":
			status = domain.StatusCreator
		case "administrator":
			status = domain.StatusAdministrator
		case "member", "restricted":
			status = domain.StatusMember
		case "left":
			status = domain.StatusLeft
		case "kicked":
			status = domain.StatusKicked
		default:
			status = domain.StatusAbsent
		}
		return nil
	})
	return status, err
}

func (c *TelegramClient) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: method, Kind: KindTransient, Err: err}
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		c.logger.WarnContext(ctx, "platform rate limit hit", "method", method, "retry_after_seconds", tooMany.RetryAfter)
	}
	kind, code := classify(err)
	// transport errors carry the request URL, which embeds the token
	return &Error{Op: method, Kind: kind, Code: code, Err: redact(err, c.token)}
}

// classify maps an SDK error onto a failure kind and the Bot API code it
// stands for. Anything the SDK does not type (network failures, 5xx,
// undecodable bodies) is transient.
func classify(err error) (Kind, int) {
	var tooMany *bot.TooManyRequestsError
	switch {
	case errors.As(err, &tooMany):
		return KindTransient, http.StatusTooManyRequests
	case errors.Is(err, bot.ErrorNotFound):
		return KindNotFound, http.StatusNotFound
	case errors.Is(err, bot.ErrorBadRequest):
		desc := strings.ToLower(err.Error())
		if strings.Contains(desc, "not found") || strings.Contains(desc, "participant_id_invalid") {
			return KindNotFound, http.StatusBadRequest
		}
		return KindPermanent, http.StatusBadRequest
	case errors.Is(err, bot.ErrorForbidden):
		return KindPermanent, http.StatusForbidden
	case errors.Is(err, bot.ErrorUnauthorized):
		return KindPermanent, http.StatusUnauthorized
	case errors.Is(err, bot.ErrorConflict):
		return KindPermanent, http.StatusConflict
	default:
		return KindTransient, 0
	}
}

func redact(err error, token string) error {
	if token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return errors.New(strings.ReplaceAll(msg, token, "<redacted>"))
}
