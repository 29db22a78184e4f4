package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/auditree/auditree-go/pkg/config"
	"github.com/auditree/auditree-go/pkg/credentials"
	"github.com/auditree/auditree-go/pkg/locker"
	"github.com/auditree/auditree-go/pkg/notify"
	"github.com/auditree/auditree-go/pkg/notify/chat"
	"github.com/auditree/auditree-go/pkg/notify/findings"
	"github.com/auditree/auditree-go/pkg/notify/paging"
	"github.com/auditree/auditree-go/pkg/notify/ticket"
)

// buildNotifiers selects and configures one notify.Notifier per entry
// in the --notify list, reading each sink's settings from the notify.*
// section of cfg and its secrets from creds. stdout always runs,
// regardless of whether it was named explicitly.
func buildNotifiers(list string, cfg *config.Config, creds *credentials.Bag, lk *locker.Locker, logger *slog.Logger) []notify.Notifier {
	requested := map[string]bool{"stdout": true}
	for _, name := range splitComma(list) {
		requested[name] = true
	}

	var notifiers []notify.Notifier
	notifiers = append(notifiers, notify.NewStreamNotifier(os.Stdout))

	if requested["locker"] {
		notifiers = append(notifiers, &notify.LockerNotifier{Locker: lk})
	}
	if requested["slack"] {
		notifiers = append(notifiers, chat.New(buildChatConfig(cfg, creds), logger))
	}
	if requested["gh_issues"] {
		notifiers = append(notifiers, ticket.New(buildTicketConfig(cfg, creds), logger))
	}
	if requested["pagerduty"] {
		notifiers = append(notifiers, paging.New(buildPagingConfig(cfg, creds), logger))
	}
	if requested["findings"] {
		notifiers = append(notifiers, findings.New(buildFindingsConfig(cfg, creds), logger))
	}
	return notifiers
}

func buildChatConfig(cfg *config.Config, creds *credentials.Bag) chat.Config {
	m := cfg.GetStringMap("notify.slack")
	return chat.Config{
		WebhookURL:     mapString(m, "webhook_url", ""),
		APIURL:         mapString(m, "api_url", ""),
		Token:          creds.GetDefault("slack", "token", mapString(m, "token", "")),
		DefaultChannel: mapString(m, "default_channel", ""),
		Routes:         chatRoutes(m),
		Compact:        mapBool(m, "compact", false),
		Assignees:      mapStringSlice(m, "assignees"),
		MaxRetries:     mapInt(m, "max_retries", 0),
	}
}

func chatRoutes(m map[string]interface{}) []chat.Route {
	raw, ok := m["routes"].([]interface{})
	if !ok {
		return nil
	}
	routes := make([]chat.Route, 0, len(raw))
	for _, item := range raw {
		rm, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		routes = append(routes, chat.Route{
			Accreditation: mapString(rm, "accreditation", ""),
			Channel:       mapString(rm, "channel", ""),
		})
	}
	return routes
}

func buildTicketConfig(cfg *config.Config, creds *credentials.Bag) ticket.Config {
	m := cfg.GetStringMap("notify.gh_issues")
	return ticket.Config{
		APIBase:          mapString(m, "api_base", "https://api.github.com"),
		Owner:            mapString(m, "owner", ""),
		Repo:             mapString(m, "repo", ""),
		Token:            creds.GetDefault("gh_issues", "token", mapString(m, "token", "")),
		Labels:           mapStringSlice(m, "labels"),
		SummaryFrequency: ticket.Frequency(mapString(m, "summary_frequency", "")),
		Assignees:        mapStringSlice(m, "assignees"),
	}
}

func buildPagingConfig(cfg *config.Config, creds *credentials.Bag) paging.Config {
	m := cfg.GetStringMap("notify.pagerduty")
	return paging.Config{
		EventsURL:  mapString(m, "events_url", "https://events.pagerduty.com/v2/enqueue"),
		RoutingKey: creds.GetDefault("pagerduty", "routing_key", mapString(m, "routing_key", "")),
	}
}

func buildFindingsConfig(cfg *config.Config, creds *credentials.Bag) findings.Config {
	m := cfg.GetStringMap("notify.findings")
	raw, _ := m["endpoints"].([]interface{})
	endpoints := make([]findings.Endpoint, 0, len(raw))
	for _, item := range raw {
		em, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		endpoints = append(endpoints, findings.Endpoint{
			Accreditation: mapString(em, "accreditation", ""),
			URL:           mapString(em, "url", ""),
		})
	}
	return findings.Config{
		Endpoints: endpoints,
		Token:     creds.GetDefault("findings", "token", mapString(m, "token", "")),
	}
}

func mapString(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func mapBool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func mapInt(m map[string]interface{}, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func mapStringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
