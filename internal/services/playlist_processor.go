package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/AgamW017/vibe/internal/config"
	"github.com/AgamW017/vibe/internal/observability"
	"github.com/AgamW017/vibe/internal/serviceinterfaces"
	contextutils "github.com/AgamW017/vibe/internal/utils"

	"github.com/jellydator/ttlcache/v3"
	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// PlaylistProcessor lists the video URLs of a YouTube playlist. With an API key it pages
// through the Data API; otherwise it reads the public Atom feed, which is capped at
// config.PlaylistFeedEntryLimit entries.
type PlaylistProcessor struct {
	httpClient  *http.Client
	feedURL     string
	apiKey      string
	apiEndpoint string
	maxItems    int
	cache       *ttlcache.Cache[string, []string]
	logger      *observability.Logger
}

// NewPlaylistProcessor creates a processor. Call Stop to release the cache janitor.
func NewPlaylistProcessor(cfg *config.Config, logger *observability.Logger) *PlaylistProcessor {
	if cfg == nil {
		panic("NewPlaylistProcessor: config is nil")
	}
	if logger == nil {
		panic("NewPlaylistProcessor: logger is nil")
	}

	feedURL := cfg.Generation.PlaylistFeedURL
	if feedURL == "" {
		feedURL = config.DefaultPlaylistFeedURL
	}
	ttl := cfg.Generation.PlaylistCacheTTL
	if ttl <= 0 {
		ttl = config.DefaultPlaylistCacheTTL
	}
	timeout := cfg.Generation.RequestTimeout
	if timeout <= 0 || timeout > config.DefaultHTTPTimeout {
		timeout = config.DefaultHTTPTimeout
	}

	cache := ttlcache.New(ttlcache.WithTTL[string, []string](ttl))
	go cache.Start()

	return &PlaylistProcessor{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		feedURL:     feedURL,
		apiKey:      strings.TrimSpace(cfg.Generation.YouTubeAPIKey),
		apiEndpoint: cfg.Generation.YouTubeAPIEndpoint,
		maxItems:    cfg.Generation.MaxPlaylistItems,
		cache:       cache,
		logger:      logger,
	}
}

// Stop ends the cache's expiry loop
func (p *PlaylistProcessor) Stop() {
	p.cache.Stop()
}

// ExtractPlaylistID returns the list= parameter of a playlist URL
func ExtractPlaylistID(playlistURL string) (string, error) {
	trimmed := strings.TrimSpace(playlistURL)
	if trimmed == "" {
		return "", contextutils.WrapError(contextutils.ErrInvalidInput, "playlist url is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", contextutils.WrapAs(contextutils.ErrInvalidInput, err, "playlist url is not a valid URL")
	}
	id := strings.TrimSpace(u.Query().Get("list"))
	if id == "" {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "playlist url %q has no list parameter", trimmed)
	}
	return id, nil
}

// GetURLsFromPlaylist returns the playlist's video links in playlist order.
func (p *PlaylistProcessor) GetURLsFromPlaylist(ctx context.Context, playlistURL string) (result0 []string, err error) {
	ctx, span := observability.TraceGenerationFunction(ctx, "get_urls_from_playlist", attribute.String("playlist.url", playlistURL))
	defer observability.FinishSpan(span, &err)

	id, err := ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("playlist.id", id))

	if item := p.cache.Get(id); item != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return append([]string(nil), item.Value()...), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var urls []string
	if p.apiKey != "" {
		span.SetAttributes(attribute.String("playlist.source", "data_api"))
		urls, err = p.list(ctx, id)
	} else {
		span.SetAttributes(attribute.String("playlist.source", "feed"))
		urls, err = p.fetch(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	p.cache.Set(id, urls, ttlcache.DefaultTTL)
	p.logger.Info(ctx, "Playlist fetched", map[string]interface{}{
		"playlist_id": id,
		"urls":        len(urls),
	})
	return append([]string(nil), urls...), nil
}

func (p *PlaylistProcessor) fetch(ctx context.Context, id string) ([]string, error) {
	feedURL := fmt.Sprintf(p.feedURL, url.QueryEscape(id))

	// gofeed parsers are not safe for concurrent use
	parser := gofeed.NewParser()
	parser.Client = p.httpClient

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusNotFound {
				return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "playlist %s not found", id)
			}
			return nil, contextutils.WrapAs(contextutils.ErrPlaylistFetchFailed, err, fmt.Sprintf("playlist feed returned %d", httpErr.StatusCode))
		}
		p.logger.Warn(ctx, "Failed to read playlist feed", map[string]interface{}{
			"playlist_id": id,
			"error":       err.Error(),
		})
		return nil, contextutils.WrapAs(contextutils.ErrPlaylistFetchFailed, err, "failed to read playlist feed")
	}

	if len(feed.Items) >= config.PlaylistFeedEntryLimit {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("playlist.truncated", true))
		p.logger.Warn(ctx, "Playlist feed is at its entry limit, later videos are missing; set generation.youtube_api_key for full listings", map[string]interface{}{
			"playlist_id": id,
			"entries":     len(feed.Items),
		})
	}

	urls := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		urls = append(urls, item.Link)
		if p.maxItems > 0 && len(urls) >= p.maxItems {
			break
		}
	}
	return urls, nil
}

// list pages through playlistItems.list until the last page or maxItems
func (p *PlaylistProcessor) list(ctx context.Context, id string) ([]string, error) {
	opts := []option.ClientOption{option.WithHTTPClient(p.httpClient)}
	if p.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(p.apiEndpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, contextutils.WrapAs(contextutils.ErrInternalError, err, "failed to create youtube client")
	}

	var urls []string
	pageToken := ""
	for {
		call := svc.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(id).
			MaxResults(config.PlaylistAPIPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do(googleapi.QueryParameter("key", p.apiKey))
		if err != nil {
			return nil, p.translateAPIError(ctx, id, err)
		}

		for _, item := range resp.Items {
			if item == nil || item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
				continue
			}
			urls = append(urls, watchURLPrefix+url.QueryEscape(item.ContentDetails.VideoId))
			if p.maxItems > 0 && len(urls) >= p.maxItems {
				return urls, nil
			}
		}
		if resp.NextPageToken == "" {
			if urls == nil {
				urls = []string{}
			}
			return urls, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (p *PlaylistProcessor) translateAPIError(ctx context.Context, id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "playlist %s not found", id)
		case apiErr.Code == http.StatusTooManyRequests || hasAPIErrorReason(apiErr, "quotaExceeded", "rateLimitExceeded"):
			return contextutils.WrapAs(contextutils.ErrQuotaExceeded, err, "youtube api quota exhausted")
		}
		return contextutils.WrapAs(contextutils.ErrPlaylistFetchFailed, err, fmt.Sprintf("youtube api returned %d", apiErr.Code))
	}
	p.logger.Warn(ctx, "Failed to list playlist items", map[string]interface{}{
		"playlist_id": id,
		"error":       err.Error(),
	})
	return contextutils.WrapAs(contextutils.ErrPlaylistFetchFailed, err, "failed to list playlist items")
}

func hasAPIErrorReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, reason := range reasons {
			if item.Reason == reason {
				return true
			}
		}
	}
	return false
}

var _ serviceinterfaces.PlaylistProcessor = (*PlaylistProcessor)(nil)
