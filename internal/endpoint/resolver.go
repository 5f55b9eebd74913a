// Package endpoint maps a loosely-specified connection configuration to the
// fully qualified URL for a given request kind.
package endpoint

import (
	"strings"

	"github.com/ssrsss/API-Check/internal/models"
)

// Kind selects which endpoint a request targets.
type Kind string

const (
	KindModels Kind = "models"
	KindChat   Kind = "chat"
)

func (k Kind) suffix() string {
	if k == KindModels {
		return "/models"
	}
	return "/chat/completions"
}

// Resolve derives the request URL for the given kind. It is deterministic and
// performs no network access.
//
// In custom mode the stored endpoint string is returned verbatim; an empty
// result means the endpoint is not configured and the caller must treat it as
// a configuration error. In standard mode the URL is derived from the base
// URL, honoring the legacy skip_auto_completion flag and the auto_v1 setting.
func Resolve(cfg *models.ApiConfig, kind Kind) string {
	if cfg.ConnectionMode == models.ConnectionModeCustom {
		if kind == KindModels {
			return strings.TrimSpace(cfg.ModelsEndpoint)
		}
		return strings.TrimSpace(cfg.ChatEndpoint)
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	// Configs predating /v1 auto-detection appended the suffix directly.
	if cfg.SkipAutoCompletion {
		return base + kind.suffix()
	}

	// auto_v1 explicitly disabled: the user supplies a complete URL.
	if cfg.AutoV1 != nil && !*cfg.AutoV1 {
		return base
	}

	if strings.HasSuffix(base, "/v1") {
		return base + kind.suffix()
	}
	return base + "/v1" + kind.suffix()
}
